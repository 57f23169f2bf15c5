package features

import (
	"fmt"
	"math"
)

// RadarOp identifies one formula over the VV/VH polarization means.
type RadarOp string

const (
	RadarAVE   RadarOp = "AVE"   // (VV + VH) / 2
	RadarDIF   RadarOp = "DIF"   // VV - VH
	RadarRAT1  RadarOp = "RAT1"  // VV / VH
	RadarRAT2  RadarOp = "RAT2"  // VH / VV
	RadarNDI   RadarOp = "NDI"   // (VV - VH) / (VV + VH)
	RadarRVI   RadarOp = "RVI"   // 4·VH / (VV + VH)
	RadarBSI   RadarOp = "BSI"   // (VH - VV) / (VH + VV)
	RadarPBSI  RadarOp = "PBSI"  // (VV/VH - 1) / (VV/VH + 1)
	RadarCPBSI RadarOp = "CPBSI" // (VH - VV/VH) / (VH + VV/VH)
	RadarTIRS  RadarOp = "TIRS"  // |VH - VV| / (VH + VV)
)

// RadarFormula resolves one radar operation to its pure formula over the
// VV and VH backscatter means.
func RadarFormula(op RadarOp) (Func, error) {
	switch op {
	case RadarAVE:
		return radar2(func(vv, vh float64) (float64, error) {
			return (vv + vh) / 2, nil
		}), nil
	case RadarDIF:
		return radar2(func(vv, vh float64) (float64, error) {
			return vv - vh, nil
		}), nil
	case RadarRAT1:
		return radar2(func(vv, vh float64) (float64, error) {
			return div(vv, vh)
		}), nil
	case RadarRAT2:
		return radar2(func(vv, vh float64) (float64, error) {
			return div(vh, vv)
		}), nil
	case RadarNDI:
		return radar2(func(vv, vh float64) (float64, error) {
			return div(vv-vh, vv+vh)
		}), nil
	case RadarRVI:
		return radar2(func(vv, vh float64) (float64, error) {
			return div(vh*4.0, vv+vh)
		}), nil
	case RadarBSI:
		return radar2(func(vv, vh float64) (float64, error) {
			return div(vh-vv, vh+vv)
		}), nil
	case RadarPBSI:
		return radar2(func(vv, vh float64) (float64, error) {
			ratio, err := div(vv, vh)
			if err != nil {
				return 0, err
			}
			return div(ratio-1, ratio+1)
		}), nil
	case RadarCPBSI:
		return radar2(func(vv, vh float64) (float64, error) {
			ratio, err := div(vv, vh)
			if err != nil {
				return 0, err
			}
			return div(vh-ratio, vh+ratio)
		}), nil
	case RadarTIRS:
		return radar2(func(vv, vh float64) (float64, error) {
			return div(math.Abs(vh-vv), vh+vv)
		}), nil
	}
	return nil, fmt.Errorf("unknown radar operation %s", op)
}

func radar2(fn func(vv, vh float64) (float64, error)) Func {
	return func(bm BandMeans) (float64, error) {
		vv, err := bm.Get("VV")
		if err != nil {
			return 0, err
		}
		vh, err := bm.Get("VH")
		if err != nil {
			return 0, err
		}
		return fn(vv, vh)
	}
}

func mustRadar(op RadarOp) Func {
	fn, err := RadarFormula(op)
	if err != nil {
		panic(err)
	}
	return fn
}

// RadarIndexes is the ordered derived-feature schema for radar records.
var RadarIndexes = []Index{
	{"AVE", mustRadar(RadarAVE)},
	{"DIF", mustRadar(RadarDIF)},
	{"RAT1", mustRadar(RadarRAT1)},
	{"RAT2", mustRadar(RadarRAT2)},
	{"NDI", mustRadar(RadarNDI)},
	{"RVI", mustRadar(RadarRVI)},
	{"BSI", mustRadar(RadarBSI)},
	{"PBSI", mustRadar(RadarPBSI)},
	{"CPBSI", mustRadar(RadarCPBSI)},
	{"TIRS", mustRadar(RadarTIRS)},
}
