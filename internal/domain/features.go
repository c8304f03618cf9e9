package domain

import "math"

// FeatureCount is the length of every fused feature vector.
const FeatureCount = 15

// Positions within FeatureVector.
const (
	IndexNDVI = iota
	IndexNDMI
	IndexCropHealth
	IndexStressLevel
	IndexCanopyWater
	IndexChlorophyll
	IndexTemperatureSurface
	IndexTemperature
	IndexHumidity
	IndexRainfall
	IndexWindSpeed
	IndexDewPoint
	IndexStorageType
	IndexVentilation
	IndexMoisture
)

// FeatureVector is the positional form consumed by trained models.
type FeatureVector [FeatureCount]float64

// SatelliteFeatures is the satellite block, values taken as-is.
type SatelliteFeatures struct {
	NDVI               float64
	NDMI               float64
	CropHealth         float64
	StressLevel        float64
	CanopyWater        float64
	Chlorophyll        float64
	TemperatureSurface float64
}

// WeatherFeatures is the weather block. Humidity is a 0-1 fraction.
type WeatherFeatures struct {
	Temperature float64
	Humidity    float64
	Rainfall    float64
	WindSpeed   float64
	DewPoint    float64
}

// StorageFeatures is the storage block. Moisture is moisture_content/20.
type StorageFeatures struct {
	TypeScore   float64
	Ventilation float64
	Moisture    float64
}

// Features is one fused snapshot with named fields.
type Features struct {
	Satellite SatelliteFeatures
	Weather   WeatherFeatures
	Storage   StorageFeatures
}

// Block defaults used when an input is absent.
var (
	DefaultSatelliteFeatures = SatelliteFeatures{
		NDVI:               0.5,
		NDMI:               0.5,
		CropHealth:         0.5,
		StressLevel:        0.5,
		CanopyWater:        0.5,
		Chlorophyll:        0.5,
		TemperatureSurface: 25.0,
	}
	DefaultWeatherFeatures = WeatherFeatures{
		Temperature: 25.0,
		Humidity:    0.6,
		Rainfall:    0.0,
		WindSpeed:   5.0,
		DewPoint:    15.0,
	}
	DefaultStorageFeatures = StorageFeatures{
		TypeScore:   0.5,
		Ventilation: 0.5,
		Moisture:    0.6,
	}
)

var storageTypeScores = map[StorageType]float64{
	StorageSilo:      0.2,
	StorageBag:       0.5,
	StorageWarehouse: 0.3,
	StorageOpen:      0.8,
}

// StorageTypeScore maps a storage type to its fixed feature value.
func StorageTypeScore(t StorageType) float64 {
	if v, ok := storageTypeScores[t]; ok {
		return v
	}
	return DefaultStorageFeatures.TypeScore
}

// Fuse normalizes the three observation streams into one snapshot. Any nil
// input is replaced by its default block, and non-finite values fall back to
// the default for that position, so the result is always complete and finite.
func Fuse(sat *SatelliteObservation, wx *WeatherObservation, st *StorageCondition) Features {
	f := Features{
		Satellite: DefaultSatelliteFeatures,
		Weather:   DefaultWeatherFeatures,
		Storage:   DefaultStorageFeatures,
	}

	if sat != nil {
		d := DefaultSatelliteFeatures
		f.Satellite = SatelliteFeatures{
			NDVI:               finiteOr(sat.NDVI, d.NDVI),
			NDMI:               finiteOr(sat.NDMI, d.NDMI),
			CropHealth:         finiteOr(sat.CropHealth, d.CropHealth),
			StressLevel:        finiteOr(sat.StressLevel, d.StressLevel),
			CanopyWater:        finiteOr(sat.CanopyWater, d.CanopyWater),
			Chlorophyll:        finiteOr(sat.Chlorophyll, d.Chlorophyll),
			TemperatureSurface: finiteOr(sat.TemperatureSurface, d.TemperatureSurface),
		}
	}

	if wx != nil {
		d := DefaultWeatherFeatures
		f.Weather = WeatherFeatures{
			Temperature: finiteOr(wx.Temperature, d.Temperature),
			Humidity:    finiteOr(wx.Humidity/100.0, d.Humidity),
			Rainfall:    finiteOr(wx.Rainfall, d.Rainfall),
			WindSpeed:   finiteOr(wx.WindSpeed, d.WindSpeed),
			DewPoint:    finiteOr(wx.DewPoint, d.DewPoint),
		}
	}

	if st != nil {
		d := DefaultStorageFeatures
		f.Storage = StorageFeatures{
			TypeScore:   StorageTypeScore(st.Type),
			Ventilation: finiteOr(st.VentilationScore, d.Ventilation),
			Moisture:    finiteOr(st.MoistureContent/20.0, d.Moisture),
		}
	}

	return f
}

// Vector flattens the snapshot in the fixed satellite, weather, storage order.
func (f Features) Vector() FeatureVector {
	return FeatureVector{
		IndexNDVI:               f.Satellite.NDVI,
		IndexNDMI:               f.Satellite.NDMI,
		IndexCropHealth:         f.Satellite.CropHealth,
		IndexStressLevel:        f.Satellite.StressLevel,
		IndexCanopyWater:        f.Satellite.CanopyWater,
		IndexChlorophyll:        f.Satellite.Chlorophyll,
		IndexTemperatureSurface: f.Satellite.TemperatureSurface,
		IndexTemperature:        f.Weather.Temperature,
		IndexHumidity:           f.Weather.Humidity,
		IndexRainfall:           f.Weather.Rainfall,
		IndexWindSpeed:          f.Weather.WindSpeed,
		IndexDewPoint:           f.Weather.DewPoint,
		IndexStorageType:        f.Storage.TypeScore,
		IndexVentilation:        f.Storage.Ventilation,
		IndexMoisture:           f.Storage.Moisture,
	}
}

// FeaturesFromVector is the inverse of Features.Vector.
func FeaturesFromVector(v FeatureVector) Features {
	return Features{
		Satellite: SatelliteFeatures{
			NDVI:               v[IndexNDVI],
			NDMI:               v[IndexNDMI],
			CropHealth:         v[IndexCropHealth],
			StressLevel:        v[IndexStressLevel],
			CanopyWater:        v[IndexCanopyWater],
			Chlorophyll:        v[IndexChlorophyll],
			TemperatureSurface: v[IndexTemperatureSurface],
		},
		Weather: WeatherFeatures{
			Temperature: v[IndexTemperature],
			Humidity:    v[IndexHumidity],
			Rainfall:    v[IndexRainfall],
			WindSpeed:   v[IndexWindSpeed],
			DewPoint:    v[IndexDewPoint],
		},
		Storage: StorageFeatures{
			TypeScore:   v[IndexStorageType],
			Ventilation: v[IndexVentilation],
			Moisture:    v[IndexMoisture],
		},
	}
}

func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
