// Package statestore is the host persistence side of the oracle contract:
// it commits the contract state record after every successful mutating
// call and restores it at startup. A failed call commits nothing, which
// is what rollback means under the all-or-nothing call model.
package statestore

import (
	log "github.com/InjectiveLabs/suplog"
	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
	"github.com/ugorji/go/codec"

	"github.com/onchainlabs/price-oracle/oracle"
)

// single-record layout: one contract instance per database
var stateKey = []byte("oracle/state")

var msgpackHandle = newMsgpackHandle()

func newMsgpackHandle() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	// canonical map ordering keeps the record byte-stable across commits
	h.Canonical = true
	return h
}

type Store struct {
	db     *pebble.DB
	logger log.Logger
}

// Open opens (or creates) the state database at path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open state database at %s", path)
	}

	return &Store{
		db:     db,
		logger: log.WithField("svc", "statestore"),
	}, nil
}

// Load reads the persisted contract record. Returns (nil, nil) when no
// record was ever committed.
func (s *Store) Load() (*oracle.State, error) {
	val, valCloser, err := s.db.Get(stateKey)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read state record")
	}
	defer valCloser.Close()

	var st oracle.State
	if err := codec.NewDecoderBytes(val, msgpackHandle).Decode(&st); err != nil {
		return nil, errors.Wrap(err, "failed to decode state record")
	}

	if st.Prices == nil {
		st.Prices = make(map[string]oracle.PriceReport)
	}

	s.logger.WithFields(log.Fields{
		"owner":   st.Owner,
		"sources": len(st.Prices),
	}).Debugln("loaded state record")

	return &st, nil
}

// Commit durably replaces the persisted contract record.
func (s *Store) Commit(st oracle.State) error {
	var buf []byte
	if err := codec.NewEncoderBytes(&buf, msgpackHandle).Encode(st); err != nil {
		return errors.Wrap(err, "failed to encode state record")
	}

	if err := s.db.Set(stateKey, buf, pebble.Sync); err != nil {
		return errors.Wrap(err, "failed to write state record")
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
