package smu

// Codename identifies the CPU generation as reported by the ryzen_smu
// driver's codename attribute. Values mirror the driver enum.
type Codename uint32

const (
	CodenameUnspecified Codename = iota
	CodenameColfax
	CodenameRenoir
	CodenamePicasso
	CodenameMatisse
	CodenameThreadripper
	CodenameCastlePeak
	CodenameRavenRidge
	CodenameRavenRidge2
	CodenameSummitRidge
	CodenamePinnacleRidge
	CodenameRembrandt
	CodenameVermeer
	CodenameVangogh
	CodenameCezanne
	CodenameMilan
	CodenameDali
	CodenameLucienne
	CodenameNaples
	CodenameChagall
	CodenameRaphael
)

var codenameNames = map[Codename]string{
	CodenameUnspecified:   "Unspecified",
	CodenameColfax:        "Colfax",
	CodenameRenoir:        "Renoir",
	CodenamePicasso:       "Picasso",
	CodenameMatisse:       "Matisse",
	CodenameThreadripper:  "Threadripper",
	CodenameCastlePeak:    "Castle Peak",
	CodenameRavenRidge:    "Raven Ridge",
	CodenameRavenRidge2:   "Raven Ridge 2",
	CodenameSummitRidge:   "Summit Ridge",
	CodenamePinnacleRidge: "Pinnacle Ridge",
	CodenameRembrandt:     "Rembrandt",
	CodenameVermeer:       "Vermeer",
	CodenameVangogh:       "Van Gogh",
	CodenameCezanne:       "Cezanne",
	CodenameMilan:         "Milan",
	CodenameDali:          "Dali",
	CodenameLucienne:      "Lucienne",
	CodenameNaples:        "Naples",
	CodenameChagall:       "Chagall",
	CodenameRaphael:       "Raphael",
}

// String returns the marketing codename, or "Unknown" for values the
// driver enum does not define.
func (c Codename) String() string {
	if name, ok := codenameNames[c]; ok {
		return name
	}
	return "Unknown"
}
