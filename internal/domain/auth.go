package domain

import "time"

// ProviderKind identifica un mecanismo de autenticacion soportado.
// Conjunto cerrado: agregar una variante implica cablear su flujo OAuth o passwordless.
type ProviderKind string

const (
	ProviderEmail     ProviderKind = "email"
	ProviderGoogle    ProviderKind = "google"
	ProviderLinkedIn  ProviderKind = "linkedin"
	ProviderMagicLink ProviderKind = "magic_link"
)

// AllProviderKinds enumera las variantes en orden estable.
var AllProviderKinds = []ProviderKind{ProviderEmail, ProviderGoogle, ProviderLinkedIn, ProviderMagicLink}

func (k ProviderKind) Valid() bool {
	switch k {
	case ProviderEmail, ProviderGoogle, ProviderLinkedIn, ProviderMagicLink:
		return true
	}
	return false
}

// Attested indica si el proveedor verifica la identidad por si mismo.
// Para estos kinds un primer sign-in crea cuenta y binding verificado.
func (k ProviderKind) Attested() bool {
	switch k {
	case ProviderGoogle, ProviderLinkedIn, ProviderMagicLink:
		return true
	}
	return false
}

// DisplayName devuelve el nombre legible para mensajes al usuario.
func (k ProviderKind) DisplayName() string {
	switch k {
	case ProviderEmail:
		return "Email/password"
	case ProviderGoogle:
		return "Google"
	case ProviderLinkedIn:
		return "LinkedIn"
	case ProviderMagicLink:
		return "Magic link"
	}
	return string(k)
}

// AuthBinding registra que un proveedor quedo vinculado a una cuenta local.
// Invariantes: a lo sumo un binding por (user, provider) y por (provider, provider_user_id).
// is_verified solo transiciona false -> true; true -> false unicamente via unlink (borrado).
type AuthBinding struct {
	ID             string       `json:"id"`
	UserID         string       `json:"user_id"`
	Provider       ProviderKind `json:"provider"`
	ProviderUserID string       `json:"provider_user_id,omitempty"`
	ProviderEmail  string       `json:"provider_email"`
	IsVerified     bool         `json:"is_verified"`
	CreatedAt      time.Time    `json:"created_at"`
	LastUsed       *time.Time   `json:"last_used,omitempty"`
}

// LinkingToken autoriza completar la vinculacion de un proveedor nuevo.
// Un solo uso, expira a la hora; expirado queda inerte aunque is_used sea false.
type LinkingToken struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Provider  ProviderKind `json:"provider"`
	Token     string       `json:"-"`
	ExpiresAt time.Time    `json:"expires_at"`
	IsUsed    bool         `json:"is_used"`
	CreatedAt time.Time    `json:"created_at"`
}

func (t LinkingToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
