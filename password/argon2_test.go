package password

import (
	"errors"
	"strings"
	"testing"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Memory = 8 * 1024
	cfg.Time = 1
	cfg.Parallelism = 1
	return cfg
}

func newHasher(t *testing.T, cfg Config) *Hasher {
	t.Helper()
	h, err := New(cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newHasher(t, testConfig())

	hash, err := h.Hash("P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := h.Verify("P@ssw0rd-Ascii", hash)
	if err != nil || !ok {
		t.Fatalf("expected verification to succeed, ok=%v err=%v", ok, err)
	}
	ok, err = h.Verify("wrong-password", hash)
	if err != nil || ok {
		t.Fatalf("expected wrong password to fail, ok=%v err=%v", ok, err)
	}
}

func TestHashIsSalted(t *testing.T) {
	h := newHasher(t, testConfig())
	a, _ := h.Hash("same-password-1")
	b, _ := h.Hash("same-password-1")
	if a == b {
		t.Fatal("two hashes of the same password must differ")
	}
}

func TestLengthPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.MaxLength = 16
	h := newHasher(t, cfg)

	for _, pw := range []string{"", "short", strings.Repeat("x", 17)} {
		if _, err := h.Hash(pw); !errors.Is(err, ErrWeakPassword) {
			t.Errorf("Hash(%d bytes): expected ErrWeakPassword, got %v", len(pw), err)
		}
	}
	if _, err := h.Hash(strings.Repeat("x", 16)); err != nil {
		t.Fatalf("password at max length rejected: %v", err)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	h := newHasher(t, testConfig())
	for _, enc := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5aw",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5aw",
		"$argon2id$v=19$m=1,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5aw",
		"$argon2id$v=19$m=8192,t=1,p=1$!!$a2V5a2V5a2V5a2V5a2V5aw",
	} {
		if _, err := h.Verify("whatever-pass", enc); !errors.Is(err, ErrMalformedHash) {
			t.Errorf("Verify(%q): expected ErrMalformedHash, got %v", enc, err)
		}
	}
}

func TestNeedsRehash(t *testing.T) {
	weak := newHasher(t, testConfig())
	hash, err := weak.Hash("upgrade-me-please")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	same, err := weak.NeedsRehash(hash)
	if err != nil || same {
		t.Fatalf("same parameters must not need rehash, got %v %v", same, err)
	}

	strong := testConfig()
	strong.Time = 2
	needs, err := newHasher(t, strong).NeedsRehash(hash)
	if err != nil || !needs {
		t.Fatalf("stronger parameters must need rehash, got %v %v", needs, err)
	}
}

func TestNewRejectsWeakParameters(t *testing.T) {
	cfg := testConfig()
	cfg.Memory = 1024
	if _, err := New(cfg); err == nil {
		t.Fatal("expected low memory to be rejected")
	}
	cfg = testConfig()
	cfg.MaxLength = 5
	if _, err := New(cfg); err == nil {
		t.Fatal("expected max < min to be rejected")
	}
}
