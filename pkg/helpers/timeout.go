// Playclock
// Copyright (c) 2026 The Playclock Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Playclock.
//
// Playclock is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Playclock is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Playclock.  If not, see <http://www.gnu.org/licenses/>.

package helpers

import (
	"context"
	"time"
)

// CallWithTimeout runs fn on its own goroutine and waits at most d for it.
// Some OS queries ignore context cancellation, so the wait is enforced here
// rather than trusted to fn. On timeout or parent cancellation it returns
// fallback and false; fn keeps running until it returns on its own.
func CallWithTimeout[T any](
	ctx context.Context,
	d time.Duration,
	fallback T,
	fn func(context.Context) T,
) (T, bool) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	result := make(chan T, 1)
	go func() {
		result <- fn(ctx)
	}()

	select {
	case v := <-result:
		return v, true
	case <-ctx.Done():
		return fallback, false
	}
}
