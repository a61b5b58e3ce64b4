package ports

import "errors"

var ErrNotFound = errors.New("not found")

var ErrConflict = errors.New("conflict")

// ErrDuplicateKey : création d'une clé déjà existante (ex: purchase source).
var ErrDuplicateKey = errors.New("duplicate key")

// ErrMissingKey : écriture d'une entrée sans catalogId.
var ErrMissingKey = errors.New("missing key")

var ErrStorageUnavailable = errors.New("storage unavailable")

var ErrRemoteUnavailable = errors.New("remote catalog unavailable")

// StorageError enveloppe une erreur du stockage durable.
// errors.Is(err, ErrStorageUnavailable) est vrai, l'erreur d'origine reste accessible via Unwrap.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return "storage " + e.Op + ": unavailable"
	}
	return "storage " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorageUnavailable }

// ErrInvalidInput : champ hors domaine (statut inconnu, score hors 0-100...).
var ErrInvalidInput = errors.New("invalid input")
