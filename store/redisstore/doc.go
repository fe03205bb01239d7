// Package redisstore implements goSession.ProfileStore on Redis.
//
// Profiles are stored in a compact versioned binary form. Writes that touch
// more than one key run as Lua scripts so readers never observe a half
// replaced set.
package redisstore
