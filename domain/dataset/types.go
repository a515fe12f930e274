package dataset

// Column names of the normalized intermediate files
const (
	ColCountry        = "Country"
	ColCountryCode    = "Country_Code"
	ColYear           = "Year"
	ColPrevalence     = "Anxiety_Prevalence_%"
	ColLightIntensity = "Light_Intensity"
)

// Raw anxiety table column names
const (
	RawColEntity = "Entity"
	RawColCode   = "Code"
	RawColYear   = "Year"
)

// AnxietyColumns is the column order of the normalized anxiety file
var AnxietyColumns = []string{ColCountry, ColCountryCode, ColYear, ColPrevalence}

// NightlightColumns is the column order of the normalized nightlight file
var NightlightColumns = []string{ColCountryCode, ColLightIntensity}

// NightlightRecord is one country's mean light intensity for the reference year
type NightlightRecord struct {
	CountryCode    string  `json:"country_code"`
	LightIntensity float64 `json:"light_intensity"`
}

// ModelingRecord is one row of the merged modeling table
type ModelingRecord struct {
	Country        string  `json:"country"`
	CountryCode    string  `json:"country_code"`
	Year           int     `json:"year"`
	Prevalence     float64 `json:"anxiety_prevalence_pct"`
	LightIntensity float64 `json:"light_intensity"`
}

// EvaluationRecord holds held-out metrics for one trained model
type EvaluationRecord struct {
	Model string  `dataframe:"Model"`
	MAE   float64 `dataframe:"MAE"`
	RMSE  float64 `dataframe:"RMSE"`
	R2    float64 `dataframe:"R2"`
}

// ModelingTable is the column-oriented view of the modeling table used by analysis stages
type ModelingTable struct {
	Countries      []string
	Codes          []string
	Prevalence     []float64
	LightIntensity []float64
}

// Len returns the number of rows
func (t *ModelingTable) Len() int {
	return len(t.Codes)
}

// Records returns the table as row records
func (t *ModelingTable) Records() []ModelingRecord {
	out := make([]ModelingRecord, t.Len())
	for i := range out {
		out[i] = ModelingRecord{
			CountryCode:    t.Codes[i],
			Prevalence:     t.Prevalence[i],
			LightIntensity: t.LightIntensity[i],
		}
		if i < len(t.Countries) {
			out[i].Country = t.Countries[i]
		}
	}
	return out
}
