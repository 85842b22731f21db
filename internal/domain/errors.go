package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound indica que la clave no existe en la cache.
var ErrNotFound = errors.New("not found")

// FetchError es un fallo de transporte o decodificación de una venue.
// Payload lleva la respuesta cruda de la venue cuando existe.
type FetchError struct {
	Venue      Venue
	Op         string // p.ej. "GET markets/133793/"
	StatusCode int    // 0 si no hubo respuesta HTTP
	Payload    string
	Err        error
}

func (e *FetchError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", e.Venue, e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, ": status %d", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	if e.Payload != "" {
		fmt.Fprintf(&sb, ": %s", truncate(e.Payload, 200))
	}
	return sb.String()
}

func (e *FetchError) Unwrap() error { return e.Err }

// OutOfRangeError indica una probabilidad fuera de [0,1] más la tolerancia.
type OutOfRangeError struct {
	Value float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("probability %v out of range [0,1]", e.Value)
}

// MissingReferenceCurrencyError indica que el mapa de precios no trae la moneda de referencia.
type MissingReferenceCurrencyError struct {
	Currency  string
	Available []string
}

func (e *MissingReferenceCurrencyError) Error() string {
	return fmt.Sprintf("reference currency %q missing (available: %s)",
		e.Currency, strings.Join(e.Available, ","))
}

// NoMatchError indica que ningún outcome del par pudo emparejarse: "sin señal".
type NoMatchError struct {
	MarketPairID string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("market pair %q: no outcomes matched", e.MarketPairID)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
