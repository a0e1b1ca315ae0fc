package ginkgocleanup_test

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"cache-cleanup/plugin"
	"cache-cleanup/plugin/ginkgocleanup"
)

const suiteConfig = `
jobs:
  stale:
    delete: [/stale]
  scratch:
    empty: [/scratch]
  teardown:
    delete: [/scratch]
beforeSuite: stale
afterTest: scratch
afterSuite: teardown
`

var (
	root    = mustRoot()
	cleaner = mustPlugin(root)
	_       = ginkgocleanup.Register(cleaner)
)

func mustRoot() string {
	dir, err := os.MkdirTemp("", "ginkgocleanup")
	if err != nil {
		panic(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "scratch"), 0o755); err != nil {
		panic(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "stale"), []byte("old"), 0o644); err != nil {
		panic(err)
	}
	return dir
}

func mustPlugin(dir string) *plugin.Plugin {
	p, err := plugin.FromYAML([]byte(suiteConfig), plugin.WithRoot(dir), plugin.WithLogger(log.New(io.Discard, "", 0)))
	if err != nil {
		panic(err)
	}
	return p
}

func TestGinkgoCleanup(t *testing.T) {
	defer os.RemoveAll(root)

	RegisterFailHandler(Fail)
	RunSpecs(t, "ginkgocleanup Suite")

	if _, err := os.Stat(filepath.Join(root, "scratch")); !os.IsNotExist(err) {
		t.Errorf("afterSuite should delete scratch, stat error = %v", err)
	}
	if err := cleaner.BeforeTest(); err != plugin.ErrClosed {
		t.Errorf("plugin should be closed after the suite, got %v", err)
	}
}

var _ = Describe("Register", Ordered, func() {
	scratchFile := filepath.Join(root, "scratch", "out.txt")

	It("runs beforeSuite before any test", func() {
		Expect(filepath.Join(root, "stale")).NotTo(BeAnExistingFile())
	})

	It("lets a test leave files behind", func() {
		Expect(os.WriteFile(scratchFile, []byte("x"), 0o644)).To(Succeed())
		Expect(scratchFile).To(BeARegularFile())
	})

	It("empties scratch after every test", func() {
		Expect(scratchFile).NotTo(BeAnExistingFile())
		Expect(filepath.Join(root, "scratch")).To(BeADirectory())
	})
})
