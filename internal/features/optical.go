package features

import (
	"fmt"
	"math"
)

// Family identifies one optical formula family. Multi-variant families take a
// positive variant id; single-form families take id 0.
type Family string

const (
	FamilyND         Family = "ND"
	FamilyNSND       Family = "NSND"
	FamilyGND        Family = "GND"
	FamilyREND       Family = "REND"
	FamilyGRND       Family = "GRND"
	FamilyGBND       Family = "GBND"
	FamilySA         Family = "SA"
	FamilyMSA        Family = "MSA"
	FamilyOSA        Family = "OSA"
	FamilyTSA        Family = "TSA"
	FamilyATSA       Family = "ATSA"
	FamilyA          Family = "A"
	FamilyAR         Family = "AR"
	FamilyC          Family = "C"
	FamilyCT         Family = "CT"
	FamilyD          Family = "D"
	FamilyE          Family = "E"
	FamilyMT         Family = "MT"
	FamilyR          Family = "R"
	FamilyWDR        Family = "WDR"
	FamilyEOMI       Family = "EOMI"
	FamilyNBR        Family = "NBR"
	FamilyCI         Family = "CI"
	FamilyGCI        Family = "GCI"
	FamilySCI        Family = "SCI"
	FamilyNDRE       Family = "NDRE"
	FamilyCARI       Family = "CARI"
	FamilyMCARI      Family = "MCARI"
	FamilyBSI        Family = "BSI"
	FamilyGLI        Family = "GLI"
	FamilyAlteration Family = "ALTERATION"
	FamilySDI        Family = "SDI"
)

// InvalidVariantError reports a (family, variant) pair that does not exist.
// It is a programming or configuration error and fails fast at the call site.
type InvalidVariantError struct {
	Family  Family
	Variant int
}

func (e *InvalidVariantError) Error() string {
	return fmt.Sprintf("no variant %d of formula family %s", e.Variant, e.Family)
}

// normDiff parameterizes the (A - B) / (A + B) form by its band pair.
func normDiff(a, b string) Func {
	return func(bm BandMeans) (float64, error) {
		av, err := bm.Get(a)
		if err != nil {
			return 0, err
		}
		bv, err := bm.Get(b)
		if err != nil {
			return 0, err
		}
		return div(av-bv, av+bv)
	}
}

func bands2(bm BandMeans, a, b string) (float64, float64, error) {
	av, err := bm.Get(a)
	if err != nil {
		return 0, 0, err
	}
	bv, err := bm.Get(b)
	if err != nil {
		return 0, 0, err
	}
	return av, bv, nil
}

func bands3(bm BandMeans, a, b, c string) (float64, float64, float64, error) {
	av, bv, err := bands2(bm, a, b)
	if err != nil {
		return 0, 0, 0, err
	}
	cv, err := bm.Get(c)
	if err != nil {
		return 0, 0, 0, err
	}
	return av, bv, cv, nil
}

// OpticalFormula resolves one (family, variant) pair to its pure formula.
// The soil-adjusted constants are empirically calibrated literals and must
// not be rederived.
func OpticalFormula(family Family, id int) (Func, error) {
	switch family {
	case FamilyND:
		return normDiff("B8", "B4"), nil
	case FamilyNSND:
		return normDiff("B11", "B7"), nil
	case FamilyGND:
		return normDiff("B8", "B3"), nil
	case FamilyREND:
		switch id {
		case 1:
			return normDiff("B5", "B4"), nil
		case 2:
			return normDiff("B6", "B4"), nil
		case 3:
			return normDiff("B7", "B4"), nil
		}
	case FamilyGRND:
		return func(bm BandMeans) (float64, error) {
			b8, b3, b4, err := bands3(bm, "B8", "B3", "B4")
			if err != nil {
				return 0, err
			}
			return div(b8-(b3+b4), b8+(b3+b4))
		}, nil
	case FamilyGBND:
		return func(bm BandMeans) (float64, error) {
			b8, b3, b2, err := bands3(bm, "B8", "B3", "B2")
			if err != nil {
				return 0, err
			}
			return div(b8-(b3+b2), b8+(b3+b2))
		}, nil

	case FamilySA:
		return func(bm BandMeans) (float64, error) {
			const l = 0.428
			b8, b4, err := bands2(bm, "B8", "B4")
			if err != nil {
				return 0, err
			}
			v, err := div(b8-b4, b8+b4+l)
			if err != nil {
				return 0, err
			}
			return v * (1 + l), nil
		}, nil
	case FamilyMSA:
		return func(bm BandMeans) (float64, error) {
			b8, b4, err := bands2(bm, "B8", "B4")
			if err != nil {
				return 0, err
			}
			root, err := sqrt(math.Pow(2.0*b8+1.0, 2.0) - 8.0*(b8-b4))
			if err != nil {
				return 0, err
			}
			return (2.0*b8 + 1.0 - root) / 2.0, nil
		}, nil
	case FamilyOSA:
		return func(bm BandMeans) (float64, error) {
			b8, b4, err := bands2(bm, "B8", "B4")
			if err != nil {
				return 0, err
			}
			v, err := div(b8-b4, b8+b4+0.16)
			if err != nil {
				return 0, err
			}
			return (1.0 + 0.16) * v, nil
		}, nil
	case FamilyTSA:
		return func(bm BandMeans) (float64, error) {
			const x, a, b = 0.114, 0.824, 0.421
			b8, b4, err := bands2(bm, "B8", "B4")
			if err != nil {
				return 0, err
			}
			return div(b*(b8-b*b4-a), b4+b*(b8-a)+x*(1.0+math.Pow(b, 2.0)))
		}, nil
	case FamilyATSA:
		return func(bm BandMeans) (float64, error) {
			b8, b4, err := bands2(bm, "B8", "B4")
			if err != nil {
				return 0, err
			}
			num := 1.22 * (b8 - 1.22*b4 - 0.03)
			return div(num, 1.22*b8+b4-1.22*0.03+0.08*(1.0+math.Pow(1.22, 2.0)))
		}, nil

	case FamilyA:
		// Product scaled by 3, not a cube root.
		return func(bm BandMeans) (float64, error) {
			b8, b4, err := bands2(bm, "B8", "B4")
			if err != nil {
				return 0, err
			}
			return b8 * (1 - b4) * (b8 - b4) / 3, nil
		}, nil
	case FamilyAR:
		switch id {
		case 1:
			return func(bm BandMeans) (float64, error) {
				b8a, b4, b2, err := bands3(bm, "B8A", "B4", "B2")
				if err != nil {
					return 0, err
				}
				adj := 0.069 * (b4 - b2)
				return div(b8a-b4-adj, b8a+b4-adj)
			}, nil
		case 2:
			return func(bm BandMeans) (float64, error) {
				b8, b4, err := bands2(bm, "B8", "B4")
				if err != nil {
					return 0, err
				}
				nd, err := div(b8-b4, b8+b4)
				if err != nil {
					return 0, err
				}
				return -0.18 + 1.17*nd, nil
			}, nil
		}
	case FamilyC:
		return func(bm BandMeans) (float64, error) {
			b8, b4, b3, err := bands3(bm, "B8", "B4", "B3")
			if err != nil {
				return 0, err
			}
			return div(b8*b4, math.Pow(b3, 2.0))
		}, nil
	case FamilyCT:
		return func(bm BandMeans) (float64, error) {
			b4, b3, err := bands2(bm, "B4", "B3")
			if err != nil {
				return 0, err
			}
			nd, err := div(b4-b3, b4+b3)
			if err != nil {
				return 0, err
			}
			root, err := sqrt(math.Abs(nd + 0.5))
			if err != nil {
				return 0, err
			}
			return div(nd+0.5, math.Abs(nd)+0.5*root)
		}, nil
	case FamilyD:
		return func(bm BandMeans) (float64, error) {
			b8, b4, err := bands2(bm, "B8", "B4")
			if err != nil {
				return 0, err
			}
			return b8 - b4, nil
		}, nil
	case FamilyE:
		switch id {
		case 1:
			return func(bm BandMeans) (float64, error) {
				b8, b4, b2, err := bands3(bm, "B8", "B4", "B2")
				if err != nil {
					return 0, err
				}
				return div(2.5*(b8-b4), (b8+6.0*b4-7.5*b2)+1.0)
			}, nil
		case 2:
			return func(bm BandMeans) (float64, error) {
				b8, b4, err := bands2(bm, "B8", "B4")
				if err != nil {
					return 0, err
				}
				return div(2.4*(b8-b4), b8+b4+1.0)
			}, nil
		case 3:
			return func(bm BandMeans) (float64, error) {
				b8, b4, err := bands2(bm, "B8", "B4")
				if err != nil {
					return 0, err
				}
				return div(2.5*(b8-b4), b8+2.4*b4+1.0)
			}, nil
		}
	case FamilyMT:
		switch id {
		case 1:
			return func(bm BandMeans) (float64, error) {
				b8, b3, b4, err := bands3(bm, "B8", "B3", "B4")
				if err != nil {
					return 0, err
				}
				return 1.2 * (1.2*(b8-b3) - 2.5*(b4-b3)), nil
			}, nil
		case 2:
			return func(bm BandMeans) (float64, error) {
				b8, b3, b4, err := bands3(bm, "B8", "B3", "B4")
				if err != nil {
					return 0, err
				}
				den, err := triangularDenominator(b8, b4)
				if err != nil {
					return 0, err
				}
				return div(1.5*(1.2*(b8-b3)-2.5*(b4-b3)), den)
			}, nil
		}
	case FamilyR:
		return func(bm BandMeans) (float64, error) {
			b8, b4, err := bands2(bm, "B8", "B4")
			if err != nil {
				return 0, err
			}
			return div(b8, b4)
		}, nil
	case FamilyWDR:
		return func(bm BandMeans) (float64, error) {
			b8, b4, err := bands2(bm, "B8", "B4")
			if err != nil {
				return 0, err
			}
			return div(0.1*b8-b4, 0.1*b8+b4)
		}, nil

	case FamilyEOMI:
		switch id {
		case 1:
			return normDiff("B11", "B8A"), nil
		case 2:
			return normDiff("B12", "B4"), nil
		case 3:
			return func(bm BandMeans) (float64, error) {
				b11, b8a, err := bands2(bm, "B11", "B8A")
				if err != nil {
					return 0, err
				}
				b12, b4, err := bands2(bm, "B12", "B4")
				if err != nil {
					return 0, err
				}
				return div((b11-b8a)+(b12-b4), b11+b8a+b12+b4)
			}, nil
		case 4:
			return normDiff("B11", "B4"), nil
		}
	case FamilyNBR:
		switch id {
		case 0:
			return normDiff("B8", "B12"), nil
		case 2:
			return normDiff("B11", "B12"), nil
		}
	case FamilyCI:
		band := map[int]string{1: "B5", 2: "B6", 3: "B7"}[id]
		if band != "" {
			return ratioMinusOne("B8", band), nil
		}
	case FamilyGCI:
		return ratioMinusOne("B9", "B3"), nil
	case FamilySCI:
		return normDiff("B11", "B8"), nil
	case FamilyNDRE:
		band := map[int]string{1: "B5", 2: "B6", 3: "B7"}[id]
		if band != "" {
			return normDiff("B8", band), nil
		}
	case FamilyMCARI:
		switch id {
		case 0:
			return func(bm BandMeans) (float64, error) {
				b5, b4, b3, err := bands3(bm, "B5", "B4", "B3")
				if err != nil {
					return 0, err
				}
				ratio, err := div(b5, b4)
				if err != nil {
					return 0, err
				}
				return ((b5 - b4) - 0.2*(b5-b3)) * ratio, nil
			}, nil
		case 1:
			return func(bm BandMeans) (float64, error) {
				b8, b4, b3, err := bands3(bm, "B8", "B4", "B3")
				if err != nil {
					return 0, err
				}
				return 1.2 * (2.5*(b8-b4) - 1.3*(b8-b3)), nil
			}, nil
		case 2:
			return func(bm BandMeans) (float64, error) {
				b8, b4, b3, err := bands3(bm, "B8", "B4", "B3")
				if err != nil {
					return 0, err
				}
				den, err := triangularDenominator(b8, b4)
				if err != nil {
					return 0, err
				}
				return div(1.5*(2.5*(b8-b4)-1.3*(b8-b3)), den)
			}, nil
		}
	case FamilyCARI:
		switch id {
		case 1:
			return func(bm BandMeans) (float64, error) {
				b5, b4, b3, err := bands3(bm, "B5", "B4", "B3")
				if err != nil {
					return 0, err
				}
				ratio, err := div(b5, b4)
				if err != nil {
					return 0, err
				}
				slope := (b5 - b3) / 150.0
				num, err := sqrt(math.Pow(slope*670.0+b4+(b3-slope*550.0), 2.0))
				if err != nil {
					return 0, err
				}
				return div(ratio*num, math.Pow((b5-b3)/math.Pow(150.0, 2.0)+1.0, 0.5))
			}, nil
		case 2:
			return func(bm BandMeans) (float64, error) {
				b5, b4, b3, err := bands3(bm, "B5", "B4", "B3")
				if err != nil {
					return 0, err
				}
				ratio, err := div(b5, b4)
				if err != nil {
					return 0, err
				}
				num := math.Abs((b5-b3)/150.0*b4 + b4 + b3 - 0.496*b3)
				return div(num, math.Pow(math.Pow(0.496, 2.0)+1.0, 0.5)*ratio)
			}, nil
		}
	case FamilyBSI:
		return func(bm BandMeans) (float64, error) {
			b11, b4, err := bands2(bm, "B11", "B4")
			if err != nil {
				return 0, err
			}
			b8, b2, err := bands2(bm, "B8", "B2")
			if err != nil {
				return 0, err
			}
			mid, err := div(b8+b2, b11+b4)
			if err != nil {
				return 0, err
			}
			return (b11 + b4) + mid + (b8 + b2), nil
		}, nil
	case FamilyGLI:
		return func(bm BandMeans) (float64, error) {
			b3, b4, b2, err := bands3(bm, "B3", "B4", "B2")
			if err != nil {
				return 0, err
			}
			return div(2.0*b3-b4-b2, 2.0*b3+b4+b2)
		}, nil
	case FamilyAlteration:
		return func(bm BandMeans) (float64, error) {
			b11, b12, err := bands2(bm, "B11", "B12")
			if err != nil {
				return 0, err
			}
			return div(b11, b12)
		}, nil
	case FamilySDI:
		return func(bm BandMeans) (float64, error) {
			b8, b12, err := bands2(bm, "B8", "B12")
			if err != nil {
				return 0, err
			}
			return b8 - b12, nil
		}, nil
	}
	return nil, &InvalidVariantError{Family: family, Variant: id}
}

// triangularDenominator is the hypotenuse term shared by MTVI2 and MCARI2.
func triangularDenominator(b8, b4 float64) (float64, error) {
	rootB4, err := sqrt(b4)
	if err != nil {
		return 0, err
	}
	return sqrt(math.Pow(2.0*b8+1.0, 2.0) - (6.0*b8 - 5.0*rootB4) - 0.5)
}

func ratioMinusOne(a, b string) Func {
	return func(bm BandMeans) (float64, error) {
		av, bv, err := bands2(bm, a, b)
		if err != nil {
			return 0, err
		}
		ratio, err := div(av, bv)
		if err != nil {
			return 0, err
		}
		return ratio - 1, nil
	}
}

func mustOptical(family Family, id int) Func {
	fn, err := OpticalFormula(family, id)
	if err != nil {
		panic(err)
	}
	return fn
}

// OpticalIndexes is the ordered derived-feature schema for optical records.
var OpticalIndexes = []Index{
	{"NDVI", mustOptical(FamilyND, 0)},
	{"NSNDVI", mustOptical(FamilyNSND, 0)},
	{"GNDVI", mustOptical(FamilyGND, 0)},
	{"RENDVI1", mustOptical(FamilyREND, 1)},
	{"RENDVI2", mustOptical(FamilyREND, 2)},
	{"RENDVI3", mustOptical(FamilyREND, 3)},
	{"GRNDVI", mustOptical(FamilyGRND, 0)},
	{"GBNDVI", mustOptical(FamilyGBND, 0)},
	{"SAVI", mustOptical(FamilySA, 0)},
	{"OSAVI", mustOptical(FamilyOSA, 0)},
	{"MSAVI", mustOptical(FamilyMSA, 0)},
	{"TSAVI", mustOptical(FamilyTSA, 0)},
	{"ATSAVI", mustOptical(FamilyATSA, 0)},
	{"RVI", mustOptical(FamilyR, 0)},
	{"DVI", mustOptical(FamilyD, 0)},
	{"CVI", mustOptical(FamilyC, 0)},
	{"CTVI", mustOptical(FamilyCT, 0)},
	{"AVI", mustOptical(FamilyA, 0)},
	{"ARVI1", mustOptical(FamilyAR, 1)},
	{"ARVI2", mustOptical(FamilyAR, 2)},
	{"EVI1", mustOptical(FamilyE, 1)},
	{"EVI2", mustOptical(FamilyE, 2)},
	{"EVI3", mustOptical(FamilyE, 3)},
	{"WDRVI", mustOptical(FamilyWDR, 0)},
	{"MTVI1", mustOptical(FamilyMT, 1)},
	{"MTVI2", mustOptical(FamilyMT, 2)},
	{"EOMI1", mustOptical(FamilyEOMI, 1)},
	{"EOMI2", mustOptical(FamilyEOMI, 2)},
	{"EOMI3", mustOptical(FamilyEOMI, 3)},
	{"EOMI4", mustOptical(FamilyEOMI, 4)},
	{"NBR", mustOptical(FamilyNBR, 0)},
	{"NBR2", mustOptical(FamilyNBR, 2)},
	{"CI1", mustOptical(FamilyCI, 1)},
	{"CI2", mustOptical(FamilyCI, 2)},
	{"CI3", mustOptical(FamilyCI, 3)},
	{"GCI", mustOptical(FamilyGCI, 0)},
	{"SCI", mustOptical(FamilySCI, 0)},
	{"NDRE1", mustOptical(FamilyNDRE, 1)},
	{"NDRE2", mustOptical(FamilyNDRE, 2)},
	{"NDRE3", mustOptical(FamilyNDRE, 3)},
	{"CARI1", mustOptical(FamilyCARI, 1)},
	{"CARI2", mustOptical(FamilyCARI, 2)},
	{"MCARI", mustOptical(FamilyMCARI, 0)},
	{"MCARI1", mustOptical(FamilyMCARI, 1)},
	{"MCARI2", mustOptical(FamilyMCARI, 2)},
	{"BSI", mustOptical(FamilyBSI, 0)},
	{"GLI", mustOptical(FamilyGLI, 0)},
	{"ALTERATION", mustOptical(FamilyAlteration, 0)},
	{"SDI", mustOptical(FamilySDI, 0)},
}
