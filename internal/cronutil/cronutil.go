// Copyright (C) 2024 The Dagu Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cronutil wraps robfig/cron/v3, the same cron dependency dagu
// itself uses, to provide the single next-fire computation the scheduler
// needs:
// standard 5-field cron in UTC, plus the @hourly/@daily/@weekly/@monthly/
// @yearly shortcuts. Second-resolution is deliberately not supported.
package cronutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Next returns the next firing instant strictly after from, per expr. Both
// from and the returned instant are UTC.
func Next(expr string, from time.Time) (time.Time, error) {
	if strings.HasPrefix(strings.TrimSpace(expr), "@every") {
		return time.Time{}, fmt.Errorf("cronutil: %q: @every intervals are not supported", expr)
	}
	sched, err := parser.Parse(expr)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from.UTC()), nil
}
