package protocol

const (
	// Input validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Layout persistence.
	ErrPersistNotFound = "E_PERSIST_NOT_FOUND"
	ErrPersistParse    = "E_PERSIST_PARSE"
	ErrPersistWrite    = "E_PERSIST_WRITE"
	ErrPersistBusy     = "E_PERSIST_BUSY"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrPersistNotFound: {},
	ErrPersistParse:    {},
	ErrPersistWrite:    {},
	ErrPersistBusy:     {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
