/*
Copyright 2025 Flant JSC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit bounds the fan-out against the cluster manager.
const DefaultLimit = 8

// ForEach invokes iteratee for each element of collection with at most limit
// goroutines in flight. The first error cancels ctx for the remaining calls
// and is returned.
func ForEach[T any](ctx context.Context, collection []T, limit int, iteratee func(ctx context.Context, item T, index int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, item := range collection {
		g.Go(func() error {
			return iteratee(gctx, item, i)
		})
	}

	return g.Wait()
}

// Map is ForEach collecting one result per element, in input order.
func Map[T, R any](ctx context.Context, collection []T, limit int, iteratee func(ctx context.Context, item T, index int) (R, error)) ([]R, error) {
	results := make([]R, len(collection))
	err := ForEach(ctx, collection, limit, func(ctx context.Context, item T, index int) error {
		r, err := iteratee(ctx, item, index)
		if err != nil {
			return err
		}
		results[index] = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
