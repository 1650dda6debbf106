package infra

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// LoginAgentLabel is the launchd label of the per-user agent.
const LoginAgentLabel = "com.webmon.agent"

// The agent runs as the logged-in user: AppleScript automation needs the
// user's GUI session, which a root LaunchDaemon does not have.
const loginAgentTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>

    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
        <string>run</string>
{{- if .ConfigPath}}
        <string>--config</string>
        <string>{{.ConfigPath}}</string>
{{- end}}
    </array>

    <key>RunAtLoad</key>
    <true/>

    <key>KeepAlive</key>
    <dict>
        <key>Crashed</key>
        <true/>
    </dict>

    <key>LimitLoadToSessionType</key>
    <string>Aqua</string>

    <key>StandardErrorPath</key>
    <string>{{.ErrorLogPath}}</string>

    <key>ThrottleInterval</key>
    <integer>10</integer>
</dict>
</plist>`

type agentPlist struct {
	Label          string
	ExecutablePath string
	ConfigPath     string
	ErrorLogPath   string
}

// LoginAgent installs webmon as a user LaunchAgent so the daemon starts at login.
type LoginAgent struct {
	runner    CommandRunner
	plistPath string
	errorLog  string
}

// NewLoginAgent creates a LoginAgent for the current user.
func NewLoginAgent(paths Paths) *LoginAgent {
	return NewLoginAgentWithDeps(&RealCommandRunner{},
		filepath.Join(GetRealUserHome(), "Library/LaunchAgents", LoginAgentLabel+".plist"),
		paths)
}

// NewLoginAgentWithDeps creates a LoginAgent with injectable dependencies (for testing)
func NewLoginAgentWithDeps(runner CommandRunner, plistPath string, paths Paths) *LoginAgent {
	return &LoginAgent{
		runner:    runner,
		plistPath: plistPath,
		errorLog:  filepath.Join(paths.DataDir, "webmon.stderr.log"),
	}
}

// PlistPath returns where the agent plist lives.
func (a *LoginAgent) PlistPath() string {
	return a.plistPath
}

func (a *LoginAgent) render(execPath, configPath string) ([]byte, error) {
	tmpl, err := template.New("plist").Parse(loginAgentTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse plist template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, agentPlist{
		Label:          LoginAgentLabel,
		ExecutablePath: execPath,
		ConfigPath:     configPath,
		ErrorLogPath:   a.errorLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute plist template: %w", err)
	}
	return buf.Bytes(), nil
}

// Install writes the plist and loads it. An installed agent with different
// content is reloaded.
func (a *LoginAgent) Install(ctx context.Context, execPath, configPath string) error {
	content, err := a.render(execPath, configPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(a.plistPath), 0755); err != nil {
		return fmt.Errorf("failed to create LaunchAgents dir: %w", err)
	}

	if a.IsInstalled() {
		// Not loaded is fine.
		_ = a.runner.Run(ctx, "launchctl", "unload", a.plistPath)
	}
	if err := os.WriteFile(a.plistPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write plist: %w", err)
	}
	if err := a.runner.Run(ctx, "launchctl", "load", "-w", a.plistPath); err != nil {
		return fmt.Errorf("failed to load agent: %w", err)
	}
	return nil
}

// Uninstall unloads and removes the plist. A missing plist is not an error.
func (a *LoginAgent) Uninstall(ctx context.Context) error {
	if !a.IsInstalled() {
		return nil
	}
	_ = a.runner.Run(ctx, "launchctl", "unload", "-w", a.plistPath)
	if err := os.Remove(a.plistPath); err != nil {
		return fmt.Errorf("failed to remove plist: %w", err)
	}
	return nil
}

// IsInstalled checks if the plist exists.
func (a *LoginAgent) IsInstalled() bool {
	_, err := os.Stat(a.plistPath)
	return err == nil
}

// NeedsUpdate reports whether an installed plist differs from what Install
// would write.
func (a *LoginAgent) NeedsUpdate(execPath, configPath string) bool {
	if !a.IsInstalled() {
		return false
	}
	current, err := os.ReadFile(a.plistPath)
	if err != nil {
		return true
	}
	expected, err := a.render(execPath, configPath)
	if err != nil {
		return true
	}
	return !bytes.Equal(current, expected)
}
