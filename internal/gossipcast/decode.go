// Package gossipcast implements the three gossip payload schemas
// (PublicPoi, UpgradeIntent, SimpleTest), their common envelope, and the
// decoder fan-in that tries each schema in turn against a raw message
// buffer.
package gossipcast

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/graphindexer/gossip-listener/internal/errs"
)

// decodeOrder is the fan-in attempt order, most-constrained schema first.
// Schemas share field names (identifier, graph_account, nonce); decodeStrict
// keeps a shorter schema from matching a longer message's bytes, and a
// payload that fits more than one schema goes to the first one in this
// order whose envelope check passes.
var decodeOrder = []PayloadKind{KindPublicPoi, KindUpgradeIntent, KindSimpleTest}

type rawEnvelope struct {
	Nonce        uint64          `json:"nonce"`
	Identifier   string          `json:"identifier"`
	GraphAccount string          `json:"graph_account"`
	Signature    []byte          `json:"signature"`
	Payload      json.RawMessage `json:"payload"`
}

// decodeStrict decodes raw into a T, rejecting any field not present in T's
// JSON tags, so a PublicPoi or UpgradeIntent payload never decodes as a
// SimpleTest{identifier, content}, and an unrelated object is not taken as
// a zero-valued payload. Fields of T absent from raw keep their zero values.
func decodeStrict[T any](raw json.RawMessage) (T, error) {
	var v T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, err
	}
	return v, nil
}

// DecodeFanIn attempts to decode data as GossipEnvelope[PublicPoi], then
// GossipEnvelope[UpgradeIntent], then GossipEnvelope[SimpleTest], in that
// order. The first schema whose payload decodes strictly and whose
// envelope-duplicated fields agree with the payload wins. On total failure
// it returns an error wrapping errs.ErrDecode.
func DecodeFanIn(data []byte) (*StoredEnvelope, error) {
	var outer rawEnvelope
	if err := json.Unmarshal(data, &outer); err != nil {
		return nil, fmt.Errorf("%w: malformed envelope: %v", errs.ErrDecode, err)
	}

	var lastErr error
	for _, kind := range decodeOrder {
		env, err := tryDecodeVariant(kind, outer)
		if err != nil {
			lastErr = err
			continue
		}
		return env, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no payload variants configured")
	}
	return nil, fmt.Errorf("%w: unsupported payload: %v", errs.ErrDecode, lastErr)
}

func tryDecodeVariant(kind PayloadKind, outer rawEnvelope) (*StoredEnvelope, error) {
	var payload Payload
	switch kind {
	case KindPublicPoi:
		p, err := decodeStrict[PublicPoi](outer.Payload)
		if err != nil {
			return nil, fmt.Errorf("public_poi: %w", err)
		}
		payload = p
	case KindUpgradeIntent:
		p, err := decodeStrict[UpgradeIntent](outer.Payload)
		if err != nil {
			return nil, fmt.Errorf("upgrade_intent: %w", err)
		}
		payload = p
	case KindSimpleTest:
		p, err := decodeStrict[SimpleTest](outer.Payload)
		if err != nil {
			return nil, fmt.Errorf("simple_test: %w", err)
		}
		payload = p
	default:
		return nil, fmt.Errorf("unknown payload kind %q", kind)
	}

	env := StoredEnvelope{
		Nonce:        outer.Nonce,
		Identifier:   outer.Identifier,
		GraphAccount: outer.GraphAccount,
		Signature:    outer.Signature,
		Kind:         kind,
		Payload:      payload,
	}
	if err := validOuter(env); err != nil {
		return nil, err
	}
	return &env, nil
}
