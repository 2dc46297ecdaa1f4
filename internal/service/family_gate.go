package service

import "strings"

// Decision es el resultado del control de acceso a la sala familiar.
type Decision int

const (
	// DecisionUnauthenticated: el caller no presentó una identidad válida.
	DecisionUnauthenticated Decision = iota
	// DecisionForbidden: identidad válida pero fuera del allow-list.
	DecisionForbidden
	// DecisionAllowed: miembro de la familia.
	DecisionAllowed
)

// FamilyGate decide si un email verificado puede leer y escribir la sala
// familiar. Se construye explícitamente desde configuración; no hay estado
// global. El mismo gate se aplica en lectura y escritura.
type FamilyGate struct {
	allowed map[string]struct{}
}

// NewFamilyGate construye el gate desde la lista de emails permitidos.
func NewFamilyGate(emails []string) *FamilyGate {
	allowed := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			allowed[e] = struct{}{}
		}
	}
	return &FamilyGate{allowed: allowed}
}

// Decide evalúa el email del caller; email vacío significa sin sesión.
func (g *FamilyGate) Decide(email string) Decision {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return DecisionUnauthenticated
	}
	if _, ok := g.allowed[email]; !ok {
		return DecisionForbidden
	}
	return DecisionAllowed
}
