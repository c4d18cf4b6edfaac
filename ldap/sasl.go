package ldap

import (
	"context"
	"fmt"
)

// SaslMechanism drives one SASL authentication exchange. Step is called
// with the server's last challenge (nil for the first call) and returns
// the client's response; done reports whether the mechanism considers the
// exchange complete from its side (the server still gets the final word
// via the BindResponse result code).
type SaslMechanism interface {
	Name() string
	Step(challenge []byte) (response []byte, done bool, err error)
}

// externalMechanism implements SASL EXTERNAL (RFC 4422 appendix A): the
// client asserts an identity already established by the transport (a TLS
// client certificate) and sends no credentials of its own.
type externalMechanism struct {
	authzID string
}

// External builds the SASL EXTERNAL mechanism. authzID may be empty to let
// the server derive identity entirely from the transport-layer
// credential.
func External(authzID string) SaslMechanism {
	return &externalMechanism{authzID: authzID}
}

func (m *externalMechanism) Name() string { return "EXTERNAL" }

func (m *externalMechanism) Step(challenge []byte) ([]byte, bool, error) {
	return []byte(m.authzID), true, nil
}

// SaslBind drives a (possibly multi-round) SASL bind to completion. Each
// round sends the mechanism's current response as SaslCredentials and, if
// the server replies ResultSaslBindInProgress, feeds its serverSaslCreds
// back into the mechanism for the next round.
func (c *Client) SaslBind(ctx context.Context, dn string, mech SaslMechanism) error {
	resp, done, err := mech.Step(nil)
	if err != nil {
		return fmt.Errorf("ldap: sasl %s step failed: %w", mech.Name(), err)
	}

	for {
		auth := AuthenticationChoice{Sasl: &SaslCredentials{
			Mechanism:   mech.Name(),
			Credentials: resp,
			HasCreds:    resp != nil,
		}}
		msg, err := c.roundTrip(ctx, &bindRequest{DN: dn, Auth: auth})
		if err != nil {
			return err
		}
		bResp, ok := msg.Op.(*bindResponse)
		if !ok {
			return InvalidResponseError("expected BindResponse")
		}

		if bResp.Result.ResultCode == ResultSaslBindInProgress {
			if done {
				return InvalidResponseError("mechanism signalled completion but server requested another round")
			}
			if !bResp.HasServerSaslCreds {
				return ErrNoSaslCredentials
			}
			resp, done, err = mech.Step(bResp.ServerSaslCreds)
			if err != nil {
				return fmt.Errorf("ldap: sasl %s step failed: %w", mech.Name(), err)
			}
			continue
		}
		return checkResult(bResp.Result)
	}
}
