package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campus-eats/docstore"
	"campus-eats/models"
	"campus-eats/state"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StartSession registers the provider callback for the client and signs in anonymously.
// Every identity change marks the session ready with a fresh user key and no role.
// The returned func removes the callback.
func (s *Service) StartSession(ctx context.Context, clientID int64, st *state.Store) (func(), error) {
	unsub := s.auth.OnStateChange(clientID, func(id *models.Identity) {
		key := uuid.NewString()
		if id != nil && id.UID != "" {
			key = id.UID
		}
		st.Dispatch(state.SetSession{Session: state.Session{Identity: id, UserKey: key, Ready: true}})
	})
	if _, err := s.auth.SignInAnonymously(ctx, clientID); err != nil {
		s.log.Error("anonymous sign-in", zap.Int64("client", clientID), zap.Error(err))
		st.ShowMessage("Authentication failed. Please try again.", state.SeverityError, 0)
		return unsub, fmt.Errorf("sign in anonymously: %w", err)
	}
	return unsub, nil
}

// Login looks the (name, roll) pair up in credentials and assigns its role.
func (s *Service) Login(ctx context.Context, st *state.Store, name, roll string) (models.Role, error) {
	name, roll = strings.TrimSpace(name), strings.TrimSpace(roll)
	sess := st.State().Session
	if !sess.Ready {
		st.ShowMessage("Database is not ready. Please wait.", state.SeverityError, 0)
		return models.RoleNone, ErrNotReady
	}

	docs, err := s.docs.Query(ctx, docstore.Credentials, docstore.Eq("name", name), docstore.Eq("roll", roll))
	if err != nil {
		s.log.Error("authenticate", zap.String("name", name), zap.Error(err))
		st.ShowMessage("Database error during login.", state.SeverityError, 0)
		return models.RoleNone, fmt.Errorf("query credentials: %w", err)
	}
	if len(docs) == 0 {
		st.ShowMessage("Invalid credentials.", state.SeverityError, 0)
		return models.RoleNone, ErrInvalidCredentials
	}
	var cred models.Credential
	if err := docs[0].Decode(&cred); err != nil || !models.ValidRole(cred.Role) {
		s.log.Error("bad credential document", zap.String("id", docs[0].ID), zap.Error(err))
		st.ShowMessage("Database error during login.", state.SeverityError, 0)
		return models.RoleNone, fmt.Errorf("credential %s: unusable role %q", docs[0].ID, cred.Role)
	}

	var identity *models.Identity
	if sess.Identity != nil {
		cp := *sess.Identity
		cp.DisplayName = name
		identity = &cp
	} else {
		identity = &models.Identity{DisplayName: name}
	}
	sess.Identity = identity
	sess.Name = name
	sess.Role = cred.Role
	st.Dispatch(state.SetSession{Session: sess}, state.SetLoginPrompt{Open: false})
	st.ShowMessage(fmt.Sprintf("Welcome, %s!", name), state.SeveritySuccess, 0)

	s.LoadWallet(ctx, st)
	return cred.Role, nil
}

// LoadWallet replaces the local balance with the stored one, if any.
func (s *Service) LoadWallet(ctx context.Context, st *state.Store) {
	key := st.State().Session.UserKey
	if key == "" {
		return
	}
	doc, err := s.docs.Get(ctx, docstore.Wallets, key)
	if errors.Is(err, docstore.ErrNotFound) {
		return
	}
	if err != nil {
		s.log.Warn("load wallet", zap.String("user", key), zap.Error(err))
		return
	}
	var w models.Wallet
	if err := doc.Decode(&w); err != nil {
		s.log.Warn("decode wallet", zap.String("user", key), zap.Error(err))
		return
	}
	st.Dispatch(state.SetWallet{Balance: w.Balance})
}

// SignIn signs in with email and password through the identity provider.
func (s *Service) SignIn(ctx context.Context, clientID int64, st *state.Store, email, password string) error {
	id, err := s.auth.SignIn(ctx, clientID, email, password)
	if err != nil {
		st.ShowMessage(err.Error(), state.SeverityError, 0)
		return fmt.Errorf("sign in: %w", err)
	}
	st.Dispatch(state.SetLoginPrompt{Open: false})
	st.ShowMessage(fmt.Sprintf("Signed in as %s.", id.Email), state.SeveritySuccess, 0)
	return nil
}

// SignUp creates an account and signs in with it.
func (s *Service) SignUp(ctx context.Context, clientID int64, st *state.Store, email, password string) error {
	id, err := s.auth.SignUp(ctx, clientID, email, password)
	if err != nil {
		st.ShowMessage(err.Error(), state.SeverityError, 0)
		return fmt.Errorf("sign up: %w", err)
	}
	st.Dispatch(state.SetLoginPrompt{Open: false})
	st.ShowMessage(fmt.Sprintf("Account created for %s.", id.Email), state.SeveritySuccess, 0)
	return nil
}

// ContinueAsGuest closes the login prompt without a role.
func (s *Service) ContinueAsGuest(st *state.Store) {
	st.Dispatch(state.SetLoginPrompt{Open: false})
	st.ShowMessage("Continuing as guest", state.SeverityInfo, 0)
}

// Logout signs out, then clears identity, role and cart and reopens the login prompt.
// A sign-out failure is only logged. Calling it twice leaves the same state.
func (s *Service) Logout(ctx context.Context, clientID int64, st *state.Store) {
	if err := s.auth.SignOut(ctx, clientID); err != nil {
		s.log.Warn("sign out", zap.Int64("client", clientID), zap.Error(err))
	}
	sess := st.State().Session
	st.Dispatch(
		// Keep the key: sign-out hands the client a fresh anonymous key through OnStateChange.
		state.SetSession{Session: state.Session{UserKey: sess.UserKey, Ready: sess.Ready}},
		state.SetCart{},
		state.SetWallet{Balance: s.cfg.DefaultWallet},
		state.SetCheckout{},
		state.CloseOverlay{},
		state.SetLoginPrompt{Open: true},
	)
	st.ShowMessage("Logged out successfully.", state.SeverityInfo, 0)
}
