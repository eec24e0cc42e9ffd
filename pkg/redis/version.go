package redis

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const minServerMajor = 7

// checkServer rejects servers older than 7.0. Servers that refuse INFO
// (some managed offerings) are let through.
func checkServer(ctx context.Context, client redis.UniversalClient) error {
	info, err := client.Info(ctx, "server").Result()
	if err != nil {
		return nil
	}
	major, version, ok := serverVersion(info)
	if !ok || major >= minServerMajor {
		return nil
	}
	return fmt.Errorf("%w: got %s", ErrUnsupportedServer, version)
}

// serverVersion reads redis_version from an INFO server reply.
func serverVersion(info string) (major int, version string, ok bool) {
	sc := bufio.NewScanner(strings.NewReader(info))
	for sc.Scan() {
		v, found := strings.CutPrefix(strings.TrimSpace(sc.Text()), "redis_version:")
		if !found {
			continue
		}
		head, _, _ := strings.Cut(v, ".")
		n, err := strconv.Atoi(head)
		if err != nil {
			return 0, v, false
		}
		return n, v, true
	}
	return 0, "", false
}
