package ephemeris

import (
	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding so the same record always
// produces identical bytes. Times keep their full RFC 3339 precision.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	encMode, err = opts.EncMode()
	if err != nil {
		panic("ephemeris: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("ephemeris: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes a record into the opaque cache blob.
func Marshal(r Record) ([]byte, error) {
	return encMode.Marshal(r)
}

// Unmarshal decodes a cache blob. The zone is not part of the blob.
func Unmarshal(b []byte) (Record, error) {
	var r Record
	if err := decMode.Unmarshal(b, &r); err != nil {
		return Record{}, err
	}
	return r, nil
}
