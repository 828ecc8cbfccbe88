package render

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message/catalog"

	"github.com/liamcoop/shiftrules/rules"
)

// Supported output languages
var (
	English = language.English
	Italian = language.Italian
)

var supported = []language.Tag{English, Italian}

var matcher = language.NewMatcher(supported)

// entry is the text of one key in every supported language. Ids are passed as
// strings so the printer does not group their digits.
type entry struct {
	en, it string
}

var messages = map[rules.Code]entry{
	rules.CodeRulePassed: {
		en: "%s: passed",
		it: "%s: superata",
	},
	rules.CodeProfileMissing: {
		en: "employee %s has no profile, checks skipped",
		it: "anagrafica del dipendente %s non trovata, controlli non eseguiti",
	},
	rules.CodeIntervalInverted: {
		en: "shift %s - %s ends before it starts",
		it: "il turno %s - %s termina prima di iniziare",
	},
	rules.CodeIntervalOutsidePeriod: {
		en: "shift %s - %s is outside the reference period",
		it: "il turno %s - %s è fuori dal periodo di riferimento",
	},
	rules.CodeDuplicateShift: {
		en: "shift %s - %s is duplicated",
		it: "il turno %s - %s è duplicato",
	},
	rules.CodeOverlappingShift: {
		en: "shift %s - %s overlaps event %s (%s - %s)",
		it: "il turno %s - %s si sovrappone all'evento %s (%s - %s)",
	},
	rules.CodeLocationOverlap: {
		en: "shift %s - %s at location %s, department %s is also scheduled at another location",
		it: "il turno %s - %s al punto vendita %s, reparto %s è pianificato anche su un altro punto vendita",
	},
	rules.CodeDailyHoursExceeded: {
		en: "%s: %.2f hours worked, above the maximum of %.2f",
		it: "%s: %.2f ore lavorate, oltre il massimo di %.2f",
	},
	rules.CodeDailyHoursBelowMinimum: {
		en: "%s: %.2f hours worked, below the minimum of %.2f",
		it: "%s: %.2f ore lavorate, sotto il minimo di %.2f",
	},
	rules.CodeInsufficientShiftGap: {
		en: "only %.2f hours of rest between %s and %s, minimum is %.2f",
		it: "solo %.2f ore di riposo tra %s e %s, il minimo è %.2f",
	},
	rules.CodeInsufficientWeeklyRest: {
		en: "no rest of at least %.2f hours between %s and %s (longest %.2f)",
		it: "nessun riposo di almeno %.2f ore tra %s e %s (massimo %.2f)",
	},
	rules.CodeExpressionViolated: {
		en: "rule %s not satisfied",
		it: "regola %s non rispettata",
	},
	rules.CodeExpressionFailed: {
		en: "rule %s could not be evaluated: %s",
		it: "impossibile valutare la regola %s: %s",
	},
}

// severity labels
var severityLabels = map[rules.Severity]entry{
	rules.SeverityOK:      {en: "OK", it: "OK"},
	rules.SeverityWarning: {en: "WARNING", it: "AVVISO"},
	rules.SeverityError:   {en: "ERROR", it: "ERRORE"},
	rules.SeverityFatal:   {en: "FATAL", it: "BLOCCANTE"},
}

const (
	keySummary      = "summary"
	keyEmployee     = "employee"
	keyUnknownCode  = "unknown_code"
	severityKeyBase = "severity."
)

var labels = map[string]entry{
	keySummary: {
		en: "%d outcomes for %d employees: %d ok, %d warnings, %d errors, %d fatal",
		it: "%d esiti per %d dipendenti: %d ok, %d avvisi, %d errori, %d bloccanti",
	},
	keyEmployee: {
		en: "Employee %s",
		it: "Dipendente %s",
	},
	keyUnknownCode: {
		en: "unknown outcome %s",
		it: "esito sconosciuto %s",
	},
}

// newCatalog registers every message under its key in both languages
func newCatalog() (*catalog.Builder, error) {
	b := catalog.NewBuilder(catalog.Fallback(English))
	var errs []error
	set := func(key string, e entry) {
		if err := b.SetString(English, key, e.en); err != nil {
			errs = append(errs, fmt.Errorf("%s (en): %w", key, err))
		}
		if err := b.SetString(Italian, key, e.it); err != nil {
			errs = append(errs, fmt.Errorf("%s (it): %w", key, err))
		}
	}
	for code, e := range messages {
		set(string(code), e)
	}
	for sev, e := range severityLabels {
		set(severityKeyBase+sev.String(), e)
	}
	for key, e := range labels {
		set(key, e)
	}
	return b, errors.Join(errs...)
}

// mustCatalog panics on a registration error; the messages are static
func mustCatalog() *catalog.Builder {
	b, err := newCatalog()
	if err != nil {
		panic(fmt.Sprintf("render: invalid message catalog: %v", err))
	}
	return b
}

var defaultCatalog = mustCatalog()
