// Package deck provides the shared domain types for the Easel decision
// engine. A presentation is planned as an ordered list of SlideMessages;
// for every slide the engine negotiates with remote content services and
// the layout service, then freezes the outcome into an immutable
// SlideDecision. The full set of decisions forms a PresentationPlan.
//
// Types in this package cross component boundaries (negotiator, resolver,
// reconciler, dispatcher, journal) and are therefore kept free of any
// behavior beyond validation and geometry checks. All of them are plain
// data: once a PresentationPlan is assembled, nothing in the engine
// mutates it.
//
// Conventions:
//
//   - Confidence scores are self-reported by content services and always
//     live in [0,1]. Validate() enforces this at every ingestion point.
//   - Pixel geometry (ContentZone, SpaceNeed) uses integer dimensions.
//     A zone with a non-positive width or height is invalid.
//   - Degraded decisions are fully usable; the flag only records that a
//     fallback path produced them.
package deck
