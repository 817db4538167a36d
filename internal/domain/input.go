package domain

// Factor names one of the seven model inputs.
type Factor string

const (
	EconomicPressure       Factor = "economic_pressure"
	PoliticalPolarization  Factor = "political_polarization"
	JusticeTrigger         Factor = "justice_trigger"
	SocialMediaVirality    Factor = "social_media_virality"
	SymbolicTiming         Factor = "symbolic_timing"
	ActivistInfrastructure Factor = "activist_infrastructure"
	HistoryOfUnrest        Factor = "history_of_unrest"
)

// Factors lists every input in canonical order (the order of the linear predictor).
var Factors = []Factor{
	EconomicPressure,
	PoliticalPolarization,
	JusticeTrigger,
	SocialMediaVirality,
	SymbolicTiming,
	ActivistInfrastructure,
	HistoryOfUnrest,
}

// Label returns a human-readable name for form fields and tables.
func (f Factor) Label() string {
	switch f {
	case EconomicPressure:
		return "Economic Pressure"
	case PoliticalPolarization:
		return "Political Polarization"
	case JusticeTrigger:
		return "Justice Trigger (e.g., police incident)"
	case SocialMediaVirality:
		return "Social Media Virality"
	case SymbolicTiming:
		return "Symbolic Timing (e.g., election, holiday)"
	case ActivistInfrastructure:
		return "Activist Infrastructure"
	case HistoryOfUnrest:
		return "History of Unrest"
	default:
		return string(f)
	}
}

// InputVector holds the seven factor values. It is a value type; copies never
// share state.
type InputVector struct {
	EconomicPressure       float64 `json:"economic_pressure" yaml:"economic_pressure"`
	PoliticalPolarization  float64 `json:"political_polarization" yaml:"political_polarization"`
	JusticeTrigger         float64 `json:"justice_trigger" yaml:"justice_trigger"`
	SocialMediaVirality    float64 `json:"social_media_virality" yaml:"social_media_virality"`
	SymbolicTiming         float64 `json:"symbolic_timing" yaml:"symbolic_timing"`
	ActivistInfrastructure float64 `json:"activist_infrastructure" yaml:"activist_infrastructure"`
	HistoryOfUnrest        float64 `json:"history_of_unrest" yaml:"history_of_unrest"`
}

// NewInputVector builds a vector from values in canonical [Factors] order.
func NewInputVector(econ, polar, justice, social, timing, activists, history float64) InputVector {
	return InputVector{
		EconomicPressure:       econ,
		PoliticalPolarization:  polar,
		JusticeTrigger:         justice,
		SocialMediaVirality:    social,
		SymbolicTiming:         timing,
		ActivistInfrastructure: activists,
		HistoryOfUnrest:        history,
	}
}

// Uniform returns a vector with every factor set to v.
func Uniform(v float64) InputVector {
	return NewInputVector(v, v, v, v, v, v, v)
}

// Values returns the factors in canonical order.
func (in InputVector) Values() [7]float64 {
	return [7]float64{
		in.EconomicPressure,
		in.PoliticalPolarization,
		in.JusticeTrigger,
		in.SocialMediaVirality,
		in.SymbolicTiming,
		in.ActivistInfrastructure,
		in.HistoryOfUnrest,
	}
}

// Get returns the value of a single factor. Unknown factors read as 0.
func (in InputVector) Get(f Factor) float64 {
	switch f {
	case EconomicPressure:
		return in.EconomicPressure
	case PoliticalPolarization:
		return in.PoliticalPolarization
	case JusticeTrigger:
		return in.JusticeTrigger
	case SocialMediaVirality:
		return in.SocialMediaVirality
	case SymbolicTiming:
		return in.SymbolicTiming
	case ActivistInfrastructure:
		return in.ActivistInfrastructure
	case HistoryOfUnrest:
		return in.HistoryOfUnrest
	default:
		return 0
	}
}

// With returns a copy of the vector with one factor replaced. Unknown factors
// leave the vector unchanged.
func (in InputVector) With(f Factor, v float64) InputVector {
	switch f {
	case EconomicPressure:
		in.EconomicPressure = v
	case PoliticalPolarization:
		in.PoliticalPolarization = v
	case JusticeTrigger:
		in.JusticeTrigger = v
	case SocialMediaVirality:
		in.SocialMediaVirality = v
	case SymbolicTiming:
		in.SymbolicTiming = v
	case ActivistInfrastructure:
		in.ActivistInfrastructure = v
	case HistoryOfUnrest:
		in.HistoryOfUnrest = v
	}
	return in
}

// InRange reports whether every factor lies in the closed interval [0, 1].
func (in InputVector) InRange() bool {
	for _, v := range in.Values() {
		if v < 0 || v > 1 {
			return false
		}
	}
	return true
}

// Override carries optional per-factor replacements applied on top of a
// prefilled vector. Nil fields keep the prefilled value.
type Override struct {
	EconomicPressure       *float64 `json:"economic_pressure,omitempty"`
	PoliticalPolarization  *float64 `json:"political_polarization,omitempty"`
	JusticeTrigger         *float64 `json:"justice_trigger,omitempty"`
	SocialMediaVirality    *float64 `json:"social_media_virality,omitempty"`
	SymbolicTiming         *float64 `json:"symbolic_timing,omitempty"`
	ActivistInfrastructure *float64 `json:"activist_infrastructure,omitempty"`
	HistoryOfUnrest        *float64 `json:"history_of_unrest,omitempty"`
}

// Apply returns base with every non-nil override field substituted.
func (o Override) Apply(base InputVector) InputVector {
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&base.EconomicPressure, o.EconomicPressure)
	set(&base.PoliticalPolarization, o.PoliticalPolarization)
	set(&base.JusticeTrigger, o.JusticeTrigger)
	set(&base.SocialMediaVirality, o.SocialMediaVirality)
	set(&base.SymbolicTiming, o.SymbolicTiming)
	set(&base.ActivistInfrastructure, o.ActivistInfrastructure)
	set(&base.HistoryOfUnrest, o.HistoryOfUnrest)
	return base
}

// IsEmpty reports whether no field is overridden.
func (o Override) IsEmpty() bool {
	return o.EconomicPressure == nil && o.PoliticalPolarization == nil &&
		o.JusticeTrigger == nil && o.SocialMediaVirality == nil &&
		o.SymbolicTiming == nil && o.ActivistInfrastructure == nil &&
		o.HistoryOfUnrest == nil
}
