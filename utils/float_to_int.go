// SPDX-License-Identifier: EPL-2.0

package utils

import "math"

func clamp(x float32) float32 {
	if x > 1 {
		return 1
	} else if x < -1 {
		return -1
	}
	return x
}

func Float32ToInt16(x float32) int16 {
	// Use 32767 for positive max to avoid overflow
	return int16(clamp(x) * 32767.0)
}

// Float32ToUint8 maps [-1,1] onto unsigned 8-bit PCM centered at 128.
func Float32ToUint8(x float32) uint8 {
	return uint8(int16(clamp(x)*127.0) + 128)
}

// Float32ToInt32 scales through float64 so the full 32-bit range survives.
func Float32ToInt32(x float32) int32 {
	return int32(float64(clamp(x)) * math.MaxInt32)
}

func Int16ToFloat32(v int16) float32 { return float32(v) / 32768.0 }
func Uint8ToFloat32(v uint8) float32 { return float32(int16(v)-128) / 128.0 }
func Int32ToFloat32(v int32) float32 { return float32(float64(v) / 2147483648.0) }
