//go:build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/daemon"
	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
	"github.com/eliteGoblin/focusd/web_mon/internal/infra"
	"github.com/eliteGoblin/focusd/web_mon/internal/matcher"
	"github.com/eliteGoblin/focusd/web_mon/internal/policy"
	"github.com/eliteGoblin/focusd/web_mon/internal/server"
	"github.com/eliteGoblin/focusd/web_mon/internal/usecase"
	"github.com/eliteGoblin/focusd/web_mon/test/fixtures"
)

const chrome = "com.google.Chrome"

// stack is a fully wired daemon with a fake browser in front of it.
type stack struct {
	browser   *fixtures.FakeBrowser
	block     *server.BlockServer
	control   *server.ControlServer
	client    *server.Client
	scheduler *daemon.Scheduler
	store     domain.KeyValueStore
	cancel    context.CancelFunc
	done      chan error
}

func freePort() int {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func startStack(dataDir string) *stack {
	logger := zap.NewNop()
	paths := infra.ResolvePaths(dataDir)
	Expect(paths.EnsureDataDir()).To(Succeed())

	store, persistent := infra.OpenStore(paths, infra.NewFileKeyProvider(paths.KeyPath), logger)
	Expect(persistent).To(BeTrue(), "encrypted store should open")

	scheduler := daemon.NewScheduler()
	engine := usecase.NewFocusEngine(usecase.NewSettingsRepository(store, logger), scheduler, domain.SystemClock{}, logger)

	browsers, err := policy.NewRegistryWithBrowsers()
	Expect(err).NotTo(HaveOccurred())

	port := freePort()
	browser := fixtures.NewFakeBrowser()
	block := server.NewBlockServer("127.0.0.1", port, logger)
	m := matcher.New(port)

	monitor := daemon.NewMonitor(daemon.MonitorConfig{
		Interval:          20 * time.Millisecond,
		RedirectThrottle:  time.Minute,
		AutomationTimeout: time.Second,
		BlockPageURL:      block.URL(),
	}, engine, browser, browsers, m, scheduler, domain.SystemClock{}, nil, logger)

	control := server.NewControlServer("127.0.0.1:0", server.ControlDeps{
		Engine:   engine,
		Monitor:  monitor,
		Matcher:  m,
		Bridge:   browser,
		Browsers: browsers.Browsers(),
	}, logger)

	d := daemon.New(daemon.Config{
		PolicyInterval:       time.Second,
		CalendarSyncInterval: time.Minute,
		ShutdownTimeout:      2 * time.Second,
	}, engine, monitor, scheduler, nil, []daemon.Service{block, control}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	s := &stack{
		browser:   browser,
		block:     block,
		control:   control,
		scheduler: scheduler,
		store:     store,
		cancel:    cancel,
		done:      make(chan error, 1),
	}
	go func() { s.done <- d.Run(ctx) }()

	Eventually(control.Addr).ShouldNot(BeEmpty())
	s.client = server.NewClient(control.Addr())
	Eventually(func() error {
		_, err := s.client.Status(context.Background())
		return err
	}).Should(Succeed())
	return s
}

func (s *stack) stop() {
	s.cancel()
	Eventually(s.done, 5*time.Second).Should(Receive(MatchError(context.Canceled)))
	Expect(s.store.Close()).To(Succeed())
}

var _ = Describe("Focus enforcement", func() {
	var (
		dataDir string
		st      *stack
		ctx     context.Context
	)

	BeforeEach(func() {
		var err error
		dataDir, err = os.MkdirTemp("", "webmon-integration-*")
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()
		st = startStack(dataDir)
	})

	AfterEach(func() {
		if st != nil {
			st.stop()
		}
		os.RemoveAll(dataDir)
	})

	Describe("block page server", func() {
		It("serves the block page on any path", func() {
			resp, err := http.Get(fmt.Sprintf("http://%s/some/path?q=1", st.block.Addr()))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(string(body)).To(ContainSubstring("Focus Mode Active"))
		})
	})

	Context("when focus mode is off", func() {
		It("leaves every tab alone", func() {
			st.browser.Show(chrome, "https://reddit.com")
			Consistently(st.browser.Redirects, 200*time.Millisecond).Should(BeEmpty())
		})
	})

	Context("when focus mode is on", func() {
		BeforeEach(func() {
			status, err := st.client.SetBlocking(ctx, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Decision.IsBlocking).To(BeTrue())
		})

		It("redirects a disallowed tab to the block page", func() {
			st.browser.Show(chrome, "https://www.reddit.com/r/golang")

			Eventually(st.browser.Redirects).Should(ConsistOf("https://www.reddit.com/r/golang"))
			Expect(st.browser.URL()).To(Equal(st.block.URL()))
		})

		It("keeps allowed tabs open", func() {
			st.browser.Show(chrome, "https://github.com/golang/go")
			Consistently(st.browser.Redirects, 200*time.Millisecond).Should(BeEmpty())
		})

		It("ignores apps that are not supported browsers", func() {
			st.browser.Show("com.apple.Terminal", "https://reddit.com")
			Consistently(st.browser.Redirects, 200*time.Millisecond).Should(BeEmpty())
		})

		It("redirects each app at most once per throttle window", func() {
			st.browser.Show(chrome, "https://reddit.com")
			Eventually(st.browser.Redirects).Should(HaveLen(1))

			st.browser.Show(chrome, "https://news.ycombinator.com")
			Consistently(st.browser.Redirects, 200*time.Millisecond).Should(HaveLen(1))
		})

		It("does nothing without automation permission", func() {
			st.browser.SetPermission(false)
			st.browser.Show(chrome, "https://reddit.com")
			Consistently(st.browser.Redirects, 200*time.Millisecond).Should(BeEmpty())

			status, err := st.client.Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.AutomationPermission).To(BeFalse())
		})

		It("allows a URL once it is added to the active rule set", func() {
			_, err := st.client.AddURL(ctx, "*.wikipedia.org")
			Expect(err).NotTo(HaveOccurred())

			st.browser.Show(chrome, "https://en.wikipedia.org/wiki/Go")
			Consistently(st.browser.Redirects, 200*time.Millisecond).Should(BeEmpty())

			res, err := st.client.Match(ctx, "https://en.wikipedia.org/wiki/Go")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Allowed).To(BeTrue())
		})

		It("stops enforcing while paused", func() {
			status, err := st.client.Pause(ctx, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Pause.IsPaused).To(BeTrue())

			st.browser.Show(chrome, "https://reddit.com")
			Consistently(st.browser.Redirects, 200*time.Millisecond).Should(BeEmpty())

			_, err = st.client.Resume(ctx)
			Expect(err).NotTo(HaveOccurred())
			Eventually(st.browser.Redirects).Should(HaveLen(1))
		})

		It("refuses to turn off in strict mode", func() {
			_, err := st.client.SetStrict(ctx, true)
			Expect(err).NotTo(HaveOccurred())

			_, err = st.client.SetBlocking(ctx, false)
			var apiErr *server.APIError
			Expect(errors.As(err, &apiErr)).To(BeTrue())
			Expect(apiErr.Code).To(Equal("strict_mode"))
			Expect(apiErr.Status).To(Equal(http.StatusConflict))
		})
	})

	Describe("shutdown", func() {
		It("cancels every timer", func() {
			_, err := st.client.Pomodoro(ctx, "start")
			Expect(err).NotTo(HaveOccurred())
			// policy safety net, monitor poll, pomodoro countdown
			Expect(st.scheduler.Len()).To(Equal(3))

			block, control, scheduler := st.block, st.control, st.scheduler
			st.stop()
			st = nil

			Expect(scheduler.Len()).To(BeZero())
			Expect(block.Running()).To(BeFalse())
			Expect(control.Running()).To(BeFalse())
		})
	})

	Describe("persistence", func() {
		It("restores focus state from the encrypted store after a restart", func() {
			_, err := st.client.SetBlocking(ctx, true)
			Expect(err).NotTo(HaveOccurred())
			_, err = st.client.CreateRuleSet(ctx, "Docs", []string{"pkg.go.dev"})
			Expect(err).NotTo(HaveOccurred())

			st.stop()
			st = startStack(dataDir)

			status, err := st.client.Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Decision.IsBlocking).To(BeTrue())

			sets, _, err := st.client.RuleSets(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sets).To(HaveLen(2))
		})
	})
})
