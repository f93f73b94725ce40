package models

import "time"

var monthNames = [...]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// MonthName returns the Spanish month name used by the campaign table.
func MonthName(t time.Time) string {
	return monthNames[t.Month()-1]
}

// ValidMonth reports whether name is one of the campaign month names.
func ValidMonth(name string) bool {
	for _, m := range monthNames {
		if m == name {
			return true
		}
	}
	return false
}
