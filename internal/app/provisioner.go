package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/pitchcall/internal/core"
	"github.com/dkeye/pitchcall/internal/domain"
	"github.com/rs/zerolog/log"
)

// CredentialProvisioner derives a room for an identity and exchanges it for a join credential.
// Every call is a fresh attempt: the room embeds the current minute.
type CredentialProvisioner struct {
	issuer core.CredentialIssuer
	now    func() time.Time
}

func NewCredentialProvisioner(issuer core.CredentialIssuer, now func() time.Time) *CredentialProvisioner {
	if now == nil {
		now = time.Now
	}
	return &CredentialProvisioner{issuer: issuer, now: now}
}

func (p *CredentialProvisioner) Provision(ctx context.Context, user domain.UserID) (domain.SessionIdentity, domain.JoinCredential, error) {
	if user == "" {
		return domain.SessionIdentity{}, domain.JoinCredential{}, domain.ErrIdentityMissing
	}

	sid := domain.NewSessionIdentity(user, p.now())
	logger := log.With().
		Str("module", "app.provisioner").
		Str("identity", string(user)).
		Str("room", string(sid.RoomID)).
		Str("attempt", sid.AttemptID).
		Logger()

	cred, err := p.issuer.IssueToken(ctx, user, sid.RoomID)
	if err != nil {
		logger.Error().Err(err).Msg("credential request failed")
		if !errors.Is(err, domain.ErrCredentialRequestFailed) {
			err = fmt.Errorf("%w: %v", domain.ErrCredentialRequestFailed, err)
		}
		return domain.SessionIdentity{}, domain.JoinCredential{}, err
	}
	if cred.Token == "" || cred.EndpointURL == "" {
		logger.Error().Msg("credential response missing token or url")
		return domain.SessionIdentity{}, domain.JoinCredential{}, fmt.Errorf("%w: incomplete credential", domain.ErrCredentialRequestFailed)
	}
	cred.IssuedFor = sid.RoomID

	logger.Info().Str("endpoint", cred.EndpointURL).Msg("credential issued")
	return sid, cred, nil
}
