package report

import (
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const dateLayout = "02.01.2006"

// GenericFailure is shown to a user when a command could not be answered.
const GenericFailure = "Das hat leider nicht geklappt\\. Bitte versuche es später noch einmal\\."

var german = message.NewPrinter(language.German)

// Number formats n with German thousands separators.
func Number(n int64) string { return german.Sprintf("%d", n) }

// SignedNumber is Number with an explicit sign.
func SignedNumber(n int64) string { return german.Sprintf("%+d", n) }

// Decimal formats f with two decimals and a decimal comma.
func Decimal(f float64) string { return german.Sprintf("%.2f", f) }

// FormatSummary renders the national summary.
func FormatSummary(s Summary) string {
	var b strings.Builder
	b.WriteString(Bold("Neuinfektionen am " + s.Date.Format(dateLayout)))
	b.WriteString("\n\n")
	if len(s.Areas) == 0 {
		b.WriteString(Escape("Noch keine Daten vorhanden."))
		return b.String()
	}
	for _, a := range s.Areas {
		b.WriteString(Bold(a.Area))
		b.WriteString(": ")
		b.WriteString(Escape(Number(a.Today) + " (" + SignedNumber(a.Delta()) + " zur Vorwoche)"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(Bold("Gesamt"))
	b.WriteString(": ")
	b.WriteString(Escape(Number(s.Today) + " (Vorwoche, gleiche Kreise: " + Number(s.LastWeekSubset) + ")"))
	b.WriteString("\n")
	b.WriteString(Bold("Prognose"))
	b.WriteString(": ")
	if s.Projection != nil {
		b.WriteString(Escape(Number(*s.Projection)))
	} else {
		b.WriteString(Escape("keine (keine Vergleichsdaten)"))
	}
	return b.String()
}

// FormatAreaSummary renders the regions of one area with trend markers.
func FormatAreaSummary(s AreaSummary) string {
	var b strings.Builder
	b.WriteString(Bold(s.Area + " am " + s.Date.Format(dateLayout)))
	b.WriteString("\n\n")
	if len(s.Regions) == 0 {
		b.WriteString(Escape("Noch kein Kreis hat heute gemeldet."))
		return b.String()
	}
	for _, r := range s.Regions {
		b.WriteString(r.Trend.Marker())
		b.WriteString(" ")
		b.WriteString(Bold(r.Name))
		b.WriteString(": ")
		b.WriteString(Escape(Number(r.Today) + " (Vorwoche: " + Number(r.LastWeek) + ")"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(Bold("Gesamt"))
	b.WriteString(": ")
	b.WriteString(Escape(Number(s.Today) + " (Vorwoche: " + Number(s.LastWeek) + ")"))
	return b.String()
}

// FormatHistory renders the per-region history view.
func FormatHistory(h History) string {
	var b strings.Builder
	b.WriteString(Bold(h.Region))
	if h.Area != "" {
		b.WriteString(Escape(" (" + h.Area + ")"))
	}
	b.WriteString("\n")
	if h.Population != nil {
		b.WriteString(Escape("Einwohner: " + Number(*h.Population)))
		b.WriteString("\n")
	}
	if h.Latest == nil {
		b.WriteString(Escape("Keine Fallzahlen vorhanden."))
		return b.String()
	}
	b.WriteString(Escape("Neueste Meldung " + h.Latest.Date.Format(dateLayout) + ": " + Number(h.Latest.NewCases)))
	b.WriteString("\n\n")
	for _, d := range h.Window {
		b.WriteString(Escape(d.Date.Format(dateLayout) + ": " + Number(d.NewCases)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(Escape("Durchschnitt (7 Tage): " + Decimal(h.Average)))
	b.WriteString("\n")
	b.WriteString(Escape("7-Tage-Inzidenz: "))
	if h.Incidence != nil {
		b.WriteString(Bold(Decimal(*h.Incidence)))
	} else {
		b.WriteString(Escape("unbekannt"))
	}
	if h.Link != "" {
		b.WriteString("\n")
		b.WriteString(Escape("Quelle: " + h.Link))
	}
	return b.String()
}

// FormatRiskAreas renders the risk-area list.
func FormatRiskAreas(date time.Time, list []RiskArea) string {
	var b strings.Builder
	b.WriteString(Bold(german.Sprintf("Risikogebiete am %s (7-Tage-Inzidenz ab %d)", date.Format(dateLayout), RiskThreshold)))
	b.WriteString("\n\n")
	if len(list) == 0 {
		b.WriteString(Escape("Derzeit keine Risikogebiete."))
		return b.String()
	}
	for i, r := range list {
		b.WriteString(Escape(german.Sprintf("%d. ", i+1)))
		b.WriteString(Bold(r.Name))
		b.WriteString(Escape(" (" + r.Area + "): " + Number(r.Incidence)))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatHelp lists the available commands.
func FormatHelp(fixed []string, areas, regions int) string {
	var b strings.Builder
	b.WriteString(Bold("Befehle"))
	b.WriteString("\n")
	for _, c := range fixed {
		b.WriteString(Escape("/" + c))
		b.WriteString("\n")
	}
	b.WriteString(Escape(german.Sprintf("Dazu %d Bundesländer und %d Kreise, z. B. /Bayern oder /Muenchen.", areas, regions)))
	return b.String()
}
