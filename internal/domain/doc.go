// Package domain models post-harvest fungal-contamination (aflatoxin) risk for
// stored produce.
//
// # Inputs
//
// Three observation streams feed an assessment:
//
//	Satellite: Sentinel-2 derived crop indicators for the field the produce came
//	from (NDVI, NDMI, crop health, stress, canopy water, chlorophyll) plus the
//	land surface temperature in °C. Indices are nominally in [0, 1].
//	Weather:   current conditions and an hourly forecast at the storage site.
//	Storage:   storage type (silo, bag, warehouse, open), ventilation score in
//	           [0, 1] where higher means worse airflow, and grain moisture in %.
//
// Observations carry provenance. Satellite records set IsRealData and weather
// bundles set Source so callers never mistake synthetic demo data for ground
// truth.
//
// # Feature layout
//
// [Fuse] produces a [Features] value whose flattened [FeatureVector] has a
// fixed, significant order that pretrained models depend on:
//
//	index  0-6   satellite: ndvi, ndmi, crop_health, stress_level,
//	             canopy_water, chlorophyll, temperature_surface
//	index  7-11  weather:   temperature, humidity/100, rainfall, wind_speed,
//	             dew_point
//	index 12-14  storage:   storage type score, ventilation_score,
//	             moisture_content/20
//
// Storage type scores: silo 0.2, warehouse 0.3, bag 0.5, open 0.8. Unknown
// types score 0.5.
//
// # Scores and levels
//
// The aflatoxin risk score (ARS) is a scalar in [1, 10]. Levels are assigned
// high-to-low:
//
//	score >= 8.0  CRITICAL
//	score >= 6.0  HIGH
//	score >= 4.0  MODERATE
//	otherwise     LOW
//
// [CalculateRiskFactors] produces a second, explainable signal: a
// multiplicative combination of temperature, humidity, and crop-stress risks
// capped at 3.0. It is reported next to the score and never averaged into it.
package domain
