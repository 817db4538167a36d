// Package domain models the civil unrest risk score.
//
// # Inputs
//
// Seven factors describe local conditions, each on a nominal 0-1 scale:
//
//	economic_pressure        cost of living, unemployment, eviction pressure
//	political_polarization   how divided the local electorate is
//	justice_trigger          a recent incident perceived as unjust (e.g. police)
//	social_media_virality    how fast grievances spread online
//	symbolic_timing          elections, anniversaries, holidays
//	activist_infrastructure  organized groups able to mobilize quickly
//	history_of_unrest        prior protests or riots in the area
//
// Values outside 0-1 are not rejected. The linear/logistic form is defined
// for every real input, so out-of-range values extrapolate through the same
// formula.
//
// # Score
//
// The linear predictor is the model intercept plus the weighted factors:
//
//	Z = -2.5 + 1.2*econ + 0.9*polar + 2.0*justice + 1.1*social
//	         + 1.5*timing + 0.8*activists + 1.0*history
//
// The probability is the logistic transform 1/(1+e^-Z), rounded to three
// decimal places with round-half-to-even. All default coefficients are
// positive, so raising any single factor never lowers the probability.
//
// Risk bands use the rounded probability and strict upper comparisons:
//
//	p > 0.75         High
//	0.5 < p <= 0.75  Moderate
//	p <= 0.5         Low
//
// # Presets
//
// A preset is a named baseline InputVector for a city, used to prefill the
// form before the user overrides individual factors. "Custom" skips the
// table and starts every factor at 0.5. See [DefaultPresets].
package domain
