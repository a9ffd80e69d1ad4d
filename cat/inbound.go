package cat

import (
	"errors"
	"fmt"

	"github.com/reddit/crossprocess.go/log"
	"github.com/reddit/crossprocess.go/obfuscate"
	"github.com/reddit/crossprocess.go/synthetics"
	"github.com/reddit/crossprocess.go/txn"
)

// ErrAlreadySet is returned when trying to attach a second synthetics header,
// or a different inbound id, to a transaction.
var ErrAlreadySet = errors.New("cat: already set")

// SetInbound decodes the identity headers of an inbound request onto t.
//
// idHeader is required. When it fails to decode, is malformed, comes from
// an untrusted account or differs from an inbound id already recorded on t,
// nothing is written to t and txnHeader is never inspected. Repeating the
// recorded id is accepted.
//
// txnHeader is optional. When it's empty only the inbound id is recorded.
// When it fails to decode, the inbound id stays recorded but none of the
// guid, trip id or path hash are.
func SetInbound(t *txn.Transaction, idHeader, txnHeader string) error {
	err := setInboundID(t, idHeader)
	observeDecode(IDHeader, err)
	if err != nil {
		log.Debugw("Dropping inbound CAT id header", "err", err)
		return err
	}
	if txnHeader == "" {
		return nil
	}

	err = setInboundTransaction(t, txnHeader)
	observeDecode(TransactionHeader, err)
	if err != nil {
		log.Debugw("Dropping inbound CAT transaction header", "err", err)
		return err
	}
	return nil
}

func setInboundID(t *txn.Transaction, idHeader string) error {
	if !t.Options().CrossProcessEnabled {
		return ErrDisabled
	}
	reply := t.ConnectReply()
	id, err := obfuscate.Deobfuscate(idHeader, reply.EncodingKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedID, err)
	}
	if err := ValidateCrossProcessID(id, reply.TrustedAccountIDs); err != nil {
		return err
	}
	if !t.SetCATInboundID(id) && t.CAT().InboundID != id {
		return fmt.Errorf("%w: inbound id %q", ErrAlreadySet, t.CAT().InboundID)
	}
	t.AddFlags(txn.FlagCATInbound)
	return nil
}

func setInboundTransaction(t *txn.Transaction, txnHeader string) error {
	d, err := DecodeTransaction(txnHeader, t.ConnectReply().EncodingKey)
	if err != nil {
		return err
	}
	t.SetCATInboundGUID(d.GUID)
	t.SetCATTripID(d.TripID)
	t.SetCATReferringPathHash(d.PathHash)
	return nil
}

// SetSynthetics decodes the obfuscated synthetics header value onto t.
//
// It fails with ErrAlreadySet when t already carries a synthetics header,
// regardless of value. A header from an untrusted account is not attached.
func SetSynthetics(t *txn.Transaction, value string) error {
	err := setSynthetics(t, value)
	observeDecode(synthetics.HeaderName, err)
	if err != nil {
		log.Debugw("Dropping inbound synthetics header", "err", err)
	}
	return err
}

func setSynthetics(t *txn.Transaction, value string) error {
	if !t.Options().SyntheticsEnabled {
		return ErrDisabled
	}
	if t.Synthetics() != nil {
		return ErrAlreadySet
	}
	reply := t.ConnectReply()
	h, err := synthetics.DecodeObfuscated(value, reply.EncodingKey)
	if err != nil {
		return err
	}
	if !reply.TrustedAccountIDs.Contains(int64(h.AccountID)) {
		return fmt.Errorf("%w: %d", ErrUntrustedAccount, h.AccountID)
	}
	if !t.SetSynthetics(h) {
		return ErrAlreadySet
	}
	t.AddFlags(txn.FlagSynthetics)
	return nil
}
