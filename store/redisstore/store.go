package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	goSession "github.com/MrEthical07/goSession"
)

// ErrRedisUnavailable wraps transport failures talking to Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

const setActiveScript = `
local data = redis.call("HGET", KEYS[1], ARGV[1])
if not data then
  return false
end
redis.call("SET", KEYS[2], ARGV[1])
return data
`

var setActiveLua = redis.NewScript(setActiveScript)

const putProfilesScript = `
redis.call("DEL", KEYS[1], KEYS[2])
for i = 1, #ARGV, 2 do
  redis.call("HSET", KEYS[1], ARGV[i], ARGV[i + 1])
  redis.call("RPUSH", KEYS[2], ARGV[i])
end
local active = redis.call("GET", KEYS[3])
if active and redis.call("HEXISTS", KEYS[1], active) == 0 then
  redis.call("DEL", KEYS[3])
end
return #ARGV / 2
`

var putProfilesLua = redis.NewScript(putProfilesScript)

const deleteProfilesScript = `
local removed = 0
local active = redis.call("GET", KEYS[3])
for i = 1, #ARGV do
  removed = removed + redis.call("HDEL", KEYS[1], ARGV[i])
  redis.call("LREM", KEYS[2], 0, ARGV[i])
  if active == ARGV[i] then
    redis.call("DEL", KEYS[3])
  end
end
return removed
`

var deleteProfilesLua = redis.NewScript(deleteProfilesScript)

// Store is a Redis-backed goSession.ProfileStore.
//
// Per user it keeps a hash of encoded profiles keyed by id, a list holding
// the display order and a string holding the remembered active id. All three
// keys share a hash tag so scripts stay valid on Redis Cluster.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// New returns a Store. An empty prefix defaults to "gs".
func New(rdb redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "gs"
	}
	return &Store{redis: rdb, prefix: prefix}
}

func (s *Store) profilesKey(userID string) string {
	return s.prefix + ":profiles:{" + userID + "}"
}

func (s *Store) orderKey(userID string) string {
	return s.prefix + ":order:{" + userID + "}"
}

func (s *Store) activeKey(userID string) string {
	return s.prefix + ":active:{" + userID + "}"
}

func (s *Store) keys(userID string) []string {
	return []string{s.profilesKey(userID), s.orderKey(userID), s.activeKey(userID)}
}

// ListProfiles returns the user's profiles in stored order. Hash entries
// missing from the order list follow, sorted by id.
func (s *Store) ListProfiles(ctx context.Context, userID string) (goSession.ProfileListing, error) {
	pipe := s.redis.Pipeline()
	orderCmd := pipe.LRange(ctx, s.orderKey(userID), 0, -1)
	hashCmd := pipe.HGetAll(ctx, s.profilesKey(userID))
	activeCmd := pipe.Get(ctx, s.activeKey(userID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return goSession.ProfileListing{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	blobs := hashCmd.Val()
	order := orderCmd.Val()
	profiles := make([]goSession.Profile, 0, len(blobs))

	for _, id := range order {
		data, ok := blobs[id]
		if !ok {
			continue
		}
		delete(blobs, id)
		p, err := Decode(id, []byte(data))
		if err != nil {
			return goSession.ProfileListing{}, fmt.Errorf("profile %q: %w", id, err)
		}
		profiles = append(profiles, p)
	}

	if len(blobs) > 0 {
		rest := make([]string, 0, len(blobs))
		for id := range blobs {
			rest = append(rest, id)
		}
		sort.Strings(rest)
		for _, id := range rest {
			p, err := Decode(id, []byte(blobs[id]))
			if err != nil {
				return goSession.ProfileListing{}, fmt.Errorf("profile %q: %w", id, err)
			}
			profiles = append(profiles, p)
		}
	}

	return goSession.ProfileListing{
		Profiles:                 profiles,
		PreferredActiveProfileID: activeCmd.Val(),
	}, nil
}

// SetActiveProfile remembers profileID as the user's active profile. Unknown
// ids return an error wrapping goSession.ErrProfileNotFound.
func (s *Store) SetActiveProfile(ctx context.Context, userID, profileID string) (goSession.Profile, error) {
	keys := []string{s.profilesKey(userID), s.activeKey(userID)}
	data, err := setActiveLua.Run(ctx, s.redis, keys, profileID).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return goSession.Profile{}, fmt.Errorf("profile %q: %w", profileID, goSession.ErrProfileNotFound)
		}
		return goSession.Profile{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return Decode(profileID, []byte(data))
}

// PutProfiles replaces the user's profile set. The remembered active id is
// dropped when it is not part of the new set.
func (s *Store) PutProfiles(ctx context.Context, userID string, profiles []goSession.Profile) error {
	args := make([]any, 0, 2*len(profiles))
	seen := make(map[string]struct{}, len(profiles))
	for _, p := range profiles {
		if p.ID == "" {
			return errors.New("profile id required")
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("duplicate profile id %q", p.ID)
		}
		seen[p.ID] = struct{}{}

		data, err := Encode(p)
		if err != nil {
			return fmt.Errorf("profile %q: %w", p.ID, err)
		}
		args = append(args, p.ID, data)
	}

	if err := putProfilesLua.Run(ctx, s.redis, s.keys(userID), args...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteProfiles removes the given ids and reports how many existed.
func (s *Store) DeleteProfiles(ctx context.Context, userID string, profileIDs ...string) (int, error) {
	if len(profileIDs) == 0 {
		return 0, nil
	}
	args := make([]any, len(profileIDs))
	for i, id := range profileIDs {
		args[i] = id
	}

	n, err := deleteProfilesLua.Run(ctx, s.redis, s.keys(userID), args...).Int()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n, nil
}

// Ping checks that Redis answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
