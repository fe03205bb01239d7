package goSession

import (
	"context"
	"fmt"
)

// Login signs in through the identity provider. Cached state is not touched
// here: the provider's signed-in event carries the new session to the Manager.
//
// Login returns the provider's error unchanged; adapters wrap
// [ErrAuthentication] for rejected credentials. A provider that reports
// success without a session yields [ErrAuthentication].
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}

	sess, err := m.provider.SignIn(ctx, email, password)
	if err == nil && sess == nil {
		err = fmt.Errorf("%w: provider returned no session", ErrAuthentication)
	}
	if err != nil {
		m.metrics.Inc(MetricLoginFailure)
		m.emitAudit(ctx, AuditLoginFailure, "", "", false, err, func() map[string]string {
			return map[string]string{"email": email}
		})
		return nil, err
	}

	m.metrics.Inc(MetricLoginSuccess)
	m.emitAudit(ctx, AuditLoginSuccess, sess.User.ID, "", true, nil, nil)
	return sess.clone(), nil
}

// Logout signs out through the identity provider and then clears the cached
// session, user, and profiles without waiting for the signed-out event.
//
// Local state is cleared even when the provider call fails; that error is
// returned.
func (m *Manager) Logout(ctx context.Context) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}

	userID := ""
	if u := m.snapshot.Load().User; u != nil {
		userID = u.ID
	}

	signOutErr := m.provider.SignOut(ctx)

	err := m.loop.Do(context.WithoutCancel(ctx), func() {
		m.setSession(nil)
		m.clearProfiles()
		m.guard.End()
		m.publish()
	})
	if err != nil {
		return m.loopErr(err)
	}

	m.metrics.Inc(MetricLogout)
	m.emitAudit(ctx, AuditLogout, userID, "", signOutErr == nil, signOutErr, nil)
	if signOutErr != nil {
		return fmt.Errorf("sign out: %w", signOutErr)
	}
	return nil
}

// RequestPasswordReset asks the provider to start a password reset for email.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}

	err := m.provider.RequestPasswordReset(ctx, email)
	m.metrics.Inc(MetricPasswordResetRequest)
	m.emitAudit(ctx, AuditPasswordResetRequested, "", "", err == nil, err, func() map[string]string {
		return map[string]string{"email": email}
	})
	return err
}

// UpdatePassword changes the signed-in user's password through the provider.
func (m *Manager) UpdatePassword(ctx context.Context, newPassword string) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}

	s := m.snapshot.Load()
	if s.Session == nil {
		return ErrNotAuthenticated
	}

	err := m.provider.UpdatePassword(ctx, newPassword)
	m.metrics.Inc(MetricPasswordUpdate)
	m.emitAudit(ctx, AuditPasswordUpdated, s.User.ID, "", err == nil, err, nil)
	return err
}
