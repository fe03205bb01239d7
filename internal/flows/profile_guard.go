package flows

// ProfileGuard enforces at most one logical profile load per sign-in episode.
// An episode starts on the first sign-in or refresh notification and ends on
// sign-out. Continuations capture the episode and are discarded once it ends.
type ProfileGuard struct {
	episode uint64
	loaded  bool
	userID  string
}

// Episode returns the current episode number.
func (g *ProfileGuard) Episode() uint64 {
	return g.episode
}

// UserID returns the user the current episode belongs to.
func (g *ProfileGuard) UserID() string {
	return g.userID
}

// Begin marks a load for userID as performed in the current episode. start is
// false when the episode already loaded for the same user. A different user
// without an intervening sign-out ends the old episode first; reset reports
// that case so the caller can clear cached profiles.
func (g *ProfileGuard) Begin(userID string) (episode uint64, start bool, reset bool) {
	if g.loaded && g.userID == userID {
		return g.episode, false, false
	}
	if g.loaded {
		g.episode++
		reset = true
	}
	g.loaded = true
	g.userID = userID
	return g.episode, true, reset
}

// Reload starts a forced load within the current episode. ok is false when no
// episode is open.
func (g *ProfileGuard) Reload() (episode uint64, userID string, ok bool) {
	if !g.loaded {
		return g.episode, "", false
	}
	return g.episode, g.userID, true
}

// End closes the episode. Returns false when no episode was open.
func (g *ProfileGuard) End() bool {
	g.episode++
	if !g.loaded {
		return false
	}
	g.loaded = false
	g.userID = ""
	return true
}

// Current reports whether a continuation captured at episode may still apply.
func (g *ProfileGuard) Current(episode uint64) bool {
	return g.loaded && g.episode == episode
}

// SelectActive returns the index of the profile that becomes active: the
// preferred id when present in ids, else the first element, else -1.
func SelectActive(ids []string, preferred string) int {
	if len(ids) == 0 {
		return -1
	}
	if preferred != "" {
		for i, id := range ids {
			if id == preferred {
				return i
			}
		}
	}
	return 0
}
