package ldap

import (
	"fmt"

	ber "github.com/go-asn1-ber/asn1-ber"
)

// LdapMessage is the RFC 4511 section 4.1.1 envelope every PDU travels in.
type LdapMessage struct {
	MessageID  int
	Op         protocolOp
	Controls   []Control
}

// LdapResult is the RFC 4511 section 4.1.9 result carried by every
// response operation (BindResponse, SearchResultDone, ModifyResponse, ...).
type LdapResult struct {
	ResultCode        ResultCode
	MatchedDN         string
	DiagnosticMessage string
	Referral          []string
}

// protocolOp is implemented by every request/response PDU type
// (bindRequest, searchRequest, searchResultEntry, extendedResponse, ...).
// appTag identifies the CHOICE alternative (RFC 4511 section 4, the
// ApplicationXxx constants in ldap.go); encode renders the op's body as an
// application-tagged packet ready to append to the message sequence.
type protocolOp interface {
	appTag() int
	encode() *ber.Packet
}

func encodeMessage(msg *LdapMessage) []byte {
	root := newSequence("LDAPMessage")
	root.AppendChild(newInt(int64(msg.MessageID), "messageID"))
	root.AppendChild(msg.Op.encode())
	if len(msg.Controls) > 0 {
		ctrls := newCtxConstructed(0, "controls")
		for _, c := range msg.Controls {
			ctrls.AppendChild(c.encode())
		}
		root.AppendChild(ctrls)
	}
	return root.Bytes()
}

// decodeMessage parses one complete LDAPMessage frame. data must already
// be known-complete; see codec.go for frame boundary detection.
func decodeMessage(data []byte) (*LdapMessage, error) {
	root, err := decodePacket(data)
	if err != nil {
		return nil, err
	}
	if len(root.Children) < 2 {
		return nil, &AsnDecodeError{Err: ProtocolError("LDAPMessage missing messageID or protocolOp")}
	}
	msgID, err := intValue(root.Children[0])
	if err != nil {
		return nil, &AsnDecodeError{Err: err}
	}
	opPacket := root.Children[1]
	op, err := decodeOp(opPacket)
	if err != nil {
		return nil, &AsnDecodeError{Err: err}
	}
	msg := &LdapMessage{MessageID: int(msgID), Op: op}
	if len(root.Children) > 2 {
		ctrlSeq := root.Children[2]
		for _, c := range ctrlSeq.Children {
			ctrl, err := decodeControl(c)
			if err != nil {
				return nil, &AsnDecodeError{Err: err}
			}
			msg.Controls = append(msg.Controls, ctrl)
		}
	}
	return msg, nil
}

// decodeOp dispatches on the protocolOp application tag to the concrete
// decoder for that PDU. Every response this package can receive as a
// client is handled here, plus the request PDUs it encodes (bind, unbind,
// search, modify, add, delete, modifyDN, extended), so encoded requests
// decode symmetrically; anything else is an UnsupportedRequestTagError.
func decodeOp(p *ber.Packet) (protocolOp, error) {
	tag := int(p.Tag)
	switch tag {
	case ApplicationBindResponse:
		return decodeBindResponse(p)
	case ApplicationSearchResultEntry:
		return decodeSearchResultEntry(p)
	case ApplicationSearchResultReference:
		return decodeSearchResultReference(p)
	case ApplicationSearchResultDone:
		return decodeSearchResultDone(p)
	case ApplicationModifyResponse:
		return decodeModifyResponse(p)
	case ApplicationAddResponse:
		return decodeAddResponse(p)
	case ApplicationDelResponse:
		return decodeDelResponse(p)
	case ApplicationExtendedResponse:
		return decodeExtendedResponse(p)
	case ApplicationModifyDNResponse:
		return decodeModifyDNResponse(p)
	case ApplicationModifyDNRequest:
		return decodeModifyDNRequest(p)
	case ApplicationBindRequest:
		return decodeBindRequest(p)
	case ApplicationUnbindRequest:
		return decodeUnbindRequest(p)
	case ApplicationSearchRequest:
		return decodeSearchRequest(p)
	case ApplicationModifyRequest:
		return decodeModifyRequest(p)
	case ApplicationAddRequest:
		return decodeAddRequest(p)
	case ApplicationDelRequest:
		return decodeDelRequest(p)
	case ApplicationExtendedRequest:
		return decodeExtendedRequest(p)
	default:
		return nil, UnsupportedRequestTagError(tag)
	}
}

// decodeLdapResult reads the common resultCode/matchedDN/diagnosticMessage
// prefix shared by every response PDU.
func decodeLdapResult(p *ber.Packet) (LdapResult, error) {
	if len(p.Children) < 3 {
		return LdapResult{}, ProtocolError("LDAPResult missing required fields")
	}
	code, err := intValue(p.Children[0])
	if err != nil {
		return LdapResult{}, fmt.Errorf("resultCode: %w", err)
	}
	return LdapResult{
		ResultCode:        ResultCode(code),
		MatchedDN:         octetString(p.Children[1]),
		DiagnosticMessage: octetString(p.Children[2]),
	}, nil
}

func encodeLdapResult(seq *ber.Packet, r LdapResult) {
	seq.AppendChild(newEnum(int64(r.ResultCode), "resultCode"))
	seq.AppendChild(newOctetString(r.MatchedDN, "matchedDN"))
	seq.AppendChild(newOctetString(r.DiagnosticMessage, "diagnosticMessage"))
}
