// Package ginkgocleanup runs a cleanup plugin from a Ginkgo v2 suite.
//
// Register must be called while the Ginkgo node tree is built, usually from a
// package level variable:
//
//	var cleaner = mustOpen()
//	var _ = ginkgocleanup.Register(cleaner)
//
// beforeTest and afterTest map to top level BeforeEach and AfterEach, so they
// wrap every It in the suite.
package ginkgocleanup

import (
	"errors"
	"fmt"

	"github.com/onsi/ginkgo/v2"

	"cache-cleanup/plugin"
)

type host struct {
	p *plugin.Plugin
}

func (h host) Subscribe(hook plugin.Hook, fn func() error) {
	run := func() {
		if err := fn(); err != nil {
			ginkgo.Fail(fmt.Sprintf("cachecleanup: %v", err))
		}
	}

	switch hook {
	case plugin.BeforeSuite:
		ginkgo.BeforeSuite(run)
	case plugin.AfterSuite:
		ginkgo.AfterSuite(func() {
			if err := errors.Join(fn(), h.p.Close()); err != nil {
				ginkgo.Fail(fmt.Sprintf("cachecleanup: %v", err))
			}
		})
	case plugin.BeforeTest:
		ginkgo.BeforeEach(run)
	case plugin.AfterTest:
		ginkgo.AfterEach(run)
	}
}

// Register binds the four hooks of p to the current suite and closes p once
// afterSuite has run. The return value only allows use in a var declaration.
func Register(p *plugin.Plugin) bool {
	p.Register(host{p: p})
	return true
}
