package plugin

import (
	"log"
	"testing"

	"cache-cleanup/internal/config"
)

// Host is a test framework that can call back into the plugin at each
// lifecycle hook
type Host interface {
	Subscribe(hook Hook, fn func() error)
}

// Register subscribes the plugin to all four hooks of h
func (p *Plugin) Register(h Host) {
	for _, hook := range config.Hooks {
		hook := hook // per-iteration copy; go.mod targets go 1.21 loop semantics
		h.Subscribe(hook, func() error { return p.RunHook(hook) })
	}
}

// M is the subset of *testing.M used by Main
type M interface {
	Run() int
}

// Main runs beforeSuite, the tests in m and afterSuite, then closes the
// plugin. Use it from TestMain:
//
//	func TestMain(m *testing.M) { os.Exit(cleaner.Main(m)) }
//
// A failing beforeSuite skips the tests. A failing afterSuite turns a
// passing run into exit code 1.
func (p *Plugin) Main(m M) int {
	if err := p.BeforeSuite(); err != nil {
		p.logger.Error("beforeSuite failed, tests not run", "error", err)
		_ = p.Close()
		return 1
	}

	code := m.Run()

	if err := p.AfterSuite(); err != nil {
		p.logger.Error("afterSuite failed", "error", err)
		if code == 0 {
			code = 1
		}
	}
	if err := p.Close(); err != nil {
		log.Printf("cachecleanup: %v", err)
		if code == 0 {
			code = 1
		}
	}
	return code
}

// Test runs beforeTest now and afterTest when t finishes
func (p *Plugin) Test(t testing.TB) {
	t.Helper()
	if err := p.BeforeTest(); err != nil {
		t.Fatalf("cachecleanup: %v", err)
	}
	t.Cleanup(func() {
		if err := p.AfterTest(); err != nil {
			t.Errorf("cachecleanup: %v", err)
		}
	})
}
