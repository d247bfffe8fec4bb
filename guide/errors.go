package guide

import "errors"

// Errori di validazione: nessuna mutazione viene eseguita quando vengono restituiti
var (
	ErrUnknownAct       = errors.New("atto sconosciuto")
	ErrSectionNotFound  = errors.New("sezione non trovata")
	ErrLinkNotFound     = errors.New("collegamento non trovato")
	ErrEmptyTitle       = errors.New("il titolo è obbligatorio")
	ErrTooFewMembers    = errors.New("una catena richiede almeno 2 sezioni")
	ErrDuplicateMember  = errors.New("sezione ripetuta nella catena")
	ErrUnknownColor     = errors.New("colore non presente nella palette")
	ErrTransferDeclined = errors.New("trasferimento della sezione rifiutato")
	ErrReorderMismatch  = errors.New("il nuovo ordine non corrisponde alle sezioni dell'atto")
	ErrMalformedBundle  = errors.New("backup non valido: sezioni mancanti")
	ErrInvalidUsername  = errors.New("nome utente non valido: ammessi solo lettere, numeri, _ e -")
	ErrInvalidDoodle    = errors.New("il disegno deve essere un data URI di tipo immagine")
	ErrInvalidDocument  = errors.New("documento non valido")
	ErrImportCancelled  = errors.New("importazione annullata")
	ErrUsernameTaken    = errors.New("nome utente già in uso")
)
