package testing

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	dockerImage = "chromedp/headless-shell:latest"

	// DockerEnv selects the headless-shell container instead of a local browser.
	DockerEnv = "LIVEGUI_E2E_DOCKER"
)

// GetFreePort asks the kernel for a free open port that is ready to use
func GetFreePort() (port int, err error) {
	var a *net.TCPAddr
	if a, err = net.ResolveTCPAddr("tcp", "localhost:0"); err == nil {
		var l *net.TCPListener
		if l, err = net.ListenTCP("tcp", a); err == nil {
			defer l.Close()
			return l.Addr().(*net.TCPAddr).Port, nil
		}
	}
	return
}

// GetChromeTestURL returns the URL the browser uses to reach a server on
// port. A Docker browser on macOS or Windows reaches the host through
// host.docker.internal.
func GetChromeTestURL(port int) string {
	portStr := fmt.Sprintf("%d", port)
	if os.Getenv(DockerEnv) == "" || runtime.GOOS == "linux" {
		return "http://localhost:" + portStr
	}
	return "http://host.docker.internal:" + portStr
}

// NewBrowserContext returns a chromedp context bounded by timeout. It uses a
// local headless browser, or the headless-shell container when DockerEnv is
// set. The test is skipped when neither can be started.
func NewBrowserContext(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()

	parent := context.Background()
	if os.Getenv(DockerEnv) != "" {
		port, err := GetFreePort()
		if err != nil {
			t.Fatalf("Failed to get a debug port: %v", err)
		}
		cmd := StartDockerChrome(t, port)
		t.Cleanup(func() { StopDockerChrome(t, cmd, port) })

		var cancel context.CancelFunc
		parent, cancel = chromedp.NewRemoteAllocator(parent, fmt.Sprintf("ws://localhost:%d", port))
		t.Cleanup(cancel)
	}

	ctx, cancel := chromedp.NewContext(parent)
	t.Cleanup(cancel)
	ctx, cancel = context.WithTimeout(ctx, timeout)
	t.Cleanup(cancel)

	if err := chromedp.Run(ctx); err != nil {
		t.Skipf("Browser unavailable, skipping E2E test: %v", err)
	}
	return ctx
}

// StartDockerChrome starts the chromedp headless-shell Docker container
func StartDockerChrome(t *testing.T, debugPort int) *exec.Cmd {
	t.Helper()

	if err := exec.Command("docker", "version").Run(); err != nil {
		t.Skip("Docker not available, skipping E2E test")
	}

	if err := exec.Command("docker", "image", "inspect", dockerImage).Run(); err != nil {
		t.Log("Pulling chromedp/headless-shell Docker image...")
		pull := exec.Command("docker", "pull", dockerImage)
		if err := pull.Start(); err != nil {
			t.Fatalf("Failed to start docker pull: %v", err)
		}

		done := make(chan error, 1)
		go func() { done <- pull.Wait() }()

		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Failed to pull Docker image: %v", err)
			}
		case <-time.After(60 * time.Second):
			pull.Process.Kill()
			t.Fatal("Docker pull timed out after 60 seconds")
		}
	}

	name := containerName(debugPort)
	var cmd *exec.Cmd
	if runtime.GOOS == "linux" {
		// host networking so the container reaches localhost
		cmd = exec.Command("docker", "run", "--rm", "--network", "host", "--name", name, dockerImage)
	} else {
		cmd = exec.Command("docker", "run", "--rm",
			"-p", fmt.Sprintf("%d:9222", debugPort),
			"--name", name,
			"--add-host", "host.docker.internal:host-gateway",
			dockerImage,
		)
	}
	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start Chrome Docker container: %v", err)
	}

	versionURL := fmt.Sprintf("http://localhost:%d/json/version", debugPort)
	for i := 0; i < 60; i++ {
		resp, err := http.Get(versionURL)
		if err == nil {
			resp.Body.Close()
			return cmd
		}
		time.Sleep(500 * time.Millisecond)
	}

	cmd.Process.Kill()
	t.Fatal("Chrome failed to start within 30 seconds")
	return nil
}

// StopDockerChrome stops the Chrome Docker container
func StopDockerChrome(t *testing.T, cmd *exec.Cmd, debugPort int) {
	t.Helper()

	name := containerName(debugPort)
	out, _ := exec.Command("docker", "ps", "-a", "-q", "-f", "name="+name).Output()
	if len(out) > 0 {
		stop := exec.Command("docker", "stop", "-t", "2", name)
		done := make(chan error, 1)
		go func() { done <- stop.Run() }()

		select {
		case err := <-done:
			if err != nil {
				t.Logf("Warning: Failed to stop Docker container: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Logf("Warning: docker stop timed out, forcing kill")
			exec.Command("docker", "kill", name).Run()
		}
	}

	if cmd != nil && cmd.Process != nil {
		cmd.Process.Kill()
	}
}

func containerName(debugPort int) string {
	return fmt.Sprintf("livegui-e2e-%d", debugPort)
}

// WaitForSocketOpen waits until the client script reports an open websocket
// on the body element.
func WaitForSocketOpen(timeout time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := chromedp.WaitReady(`[data-lg-kind="body"]`, chromedp.ByQuery).Do(ctx); err != nil {
			return fmt.Errorf("body element not found: %w", err)
		}

		start := time.Now()
		for {
			var open bool
			err := chromedp.Evaluate(`
				(() => {
					const body = document.querySelector('[data-lg-kind="body"]');
					return !!body && body.getAttribute('data-lg-state') === 'open';
				})()
			`, &open).Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to check socket state: %w", err)
			}
			if open {
				return nil
			}
			if time.Since(start) > timeout {
				return fmt.Errorf("timeout waiting for the websocket to open after %v", timeout)
			}
			time.Sleep(10 * time.Millisecond)
		}
	})
}

// WaitForText waits until the element with the given node id shows text.
func WaitForText(id int, text string, timeout time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		start := time.Now()
		var last string
		for {
			if err := chromedp.Evaluate(fmt.Sprintf(
				`(document.getElementById('lg-%d') || {}).textContent || ''`, id), &last).Do(ctx); err != nil {
				return err
			}
			if last == text {
				return nil
			}
			if time.Since(start) > timeout {
				return fmt.Errorf("node %d shows %q, want %q after %v", id, last, text, timeout)
			}
			time.Sleep(10 * time.Millisecond)
		}
	})
}

// ValidateNoTemplateExpressions checks that the element does not contain raw
// Go template expressions, which would mean an element template failed to
// execute.
func ValidateNoTemplateExpressions(selector string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var innerHTML string
		if err := chromedp.InnerHTML(selector, &innerHTML, chromedp.ByQuery).Do(ctx); err != nil {
			return fmt.Errorf("failed to get innerHTML of %s: %w", selector, err)
		}

		for _, expr := range []string{"{{if", "{{range", "{{define", "{{template", "{{with", "{{end}}"} {
			idx := strings.Index(innerHTML, expr)
			if idx < 0 {
				continue
			}
			start := max(idx-50, 0)
			end := min(idx+100, len(innerHTML))
			return fmt.Errorf("raw template expression '%s' found in HTML. Context: ...%s...", expr, innerHTML[start:end])
		}
		return nil
	})
}
