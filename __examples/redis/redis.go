package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/hyp3rd/statkit"
	"github.com/hyp3rd/statkit/internal/constants"
	"github.com/hyp3rd/statkit/pkg/source"
)

// This example reads a dataset from a Redis list and describes it.
// Seed the list first: RPUSH statkit:dataset 1 2 2 3 8
func main() {
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	values, err := source.FromRedisList(ctx, client, constants.RedisDatasetKey)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return
	}

	kit, err := statkit.NewWithDefaults(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return
	}
	defer kit.Stop(ctx)

	err = kit.Load(ctx, values)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return
	}

	fmt.Printf("%+v\n", kit.Statistics().Snapshot)
}
