// Package main is the entry point for the gelatinarm application.
package main

import (
	"github.com/gitman-101111/gelatinarm-sub002/cmd"
	"github.com/gitman-101111/gelatinarm-sub002/config"
	"github.com/gitman-101111/gelatinarm-sub002/internal/cache"
	"github.com/gitman-101111/gelatinarm-sub002/log"
	"github.com/gitman-101111/gelatinarm-sub002/reporting"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	// Initialize asynchronous background processes for cache maintenance and
	// delivery of queued progress reports.
	cache.CollectGarbage()
	reporting.ReconcileFailures()

	cmd.Execute()
}
