/*
	This file converts the qform quaternion and sform rows into 4x4 affines that map
	voxel indices to millimetre coordinates.
*/

package header

import (
	"fmt"
	"math"
)

// Orientation conventions reported by LeftRightOrder.
const (
	Radiological = -1
	Neurological = 1
)

// Mat44 is a 4x4 affine in row-major order.
type Mat44 [4][4]float64

// IdentityMat44 returns the identity transform.
func IdentityMat44() Mat44 {
	return Mat44{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}
}

// QuaternionToMatrix builds the qform affine from the quaternion (b, c, d), offsets,
// voxel spacing and qfac.  Non-positive spacings are treated as 1.
func QuaternionToMatrix(qb, qc, qd, qx, qy, qz, dx, dy, dz, qfac float64) Mat44 {
	var m Mat44
	m[3] = [4]float64{0, 0, 0, 1}

	a := 1.0 - (qb*qb + qc*qc + qd*qd)
	if a < 1.e-7 {
		// special case: 180 degree rotation, renormalize (b, c, d)
		a = 1.0 / math.Sqrt(qb*qb+qc*qc+qd*qd)
		qb *= a
		qc *= a
		qd *= a
		a = 0
	} else {
		a = math.Sqrt(a)
	}

	if dx <= 0 {
		dx = 1
	}
	if dy <= 0 {
		dy = 1
	}
	if dz <= 0 {
		dz = 1
	}
	if qfac < 0 {
		dz = -dz
	}

	m[0][0] = (a*a + qb*qb - qc*qc - qd*qd) * dx
	m[0][1] = 2 * (qb*qc - a*qd) * dy
	m[0][2] = 2 * (qb*qd + a*qc) * dz
	m[1][0] = 2 * (qb*qc + a*qd) * dx
	m[1][1] = (a*a + qc*qc - qb*qb - qd*qd) * dy
	m[1][2] = 2 * (qc*qd - a*qb) * dz
	m[2][0] = 2 * (qb*qd - a*qc) * dx
	m[2][1] = 2 * (qc*qd + a*qb) * dy
	m[2][2] = (a*a + qd*qd - qc*qc - qb*qb) * dz

	m[0][3] = qx
	m[1][3] = qy
	m[2][3] = qz
	return m
}

// QFormMatrix returns the qform affine regardless of the qform code.
func (h Header) QFormMatrix() Mat44 {
	qfac := float64(h.pixdim[0])
	if qfac == 0 {
		qfac = 1
	}
	return QuaternionToMatrix(
		float64(h.quatern[0]), float64(h.quatern[1]), float64(h.quatern[2]),
		float64(h.qoffset[0]), float64(h.qoffset[1]), float64(h.qoffset[2]),
		float64(h.pixdim[1]), float64(h.pixdim[2]), float64(h.pixdim[3]), qfac)
}

// SFormMatrix returns the sform affine regardless of the sform code.
func (h Header) SFormMatrix() Mat44 {
	var m Mat44
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			m[r][c] = float64(h.srow[r][c])
		}
	}
	m[3] = [4]float64{0, 0, 0, 1}
	return m
}

// StdMatrix returns the preferred voxel-to-mm transform: the sform if its code is set,
// else the qform if its code is set, else a scaling by voxel spacing.
func (h Header) StdMatrix() (Mat44, XFormCode) {
	if h.sformCode != 0 {
		return h.SFormMatrix(), XFormCode(h.sformCode)
	}
	if h.qformCode != 0 {
		return h.QFormMatrix(), XFormCode(h.qformCode)
	}
	m := IdentityMat44()
	for i := 0; i < 3; i++ {
		if d := float64(h.pixdim[i+1]); d > 0 {
			m[i][i] = d
		}
	}
	return m, XFormUnknown
}

// LeftRightOrder returns Radiological or Neurological depending on the handedness of
// the preferred transform.  Datasets without a transform are radiological.
func (h Header) LeftRightOrder() int {
	m, code := h.StdMatrix()
	if code == XFormUnknown {
		return Radiological
	}
	if m.Det3() < 0 {
		return Radiological
	}
	return Neurological
}

// VoxelToMM maps a voxel coordinate to millimetres.
func (m Mat44) VoxelToMM(i, j, k float64) (x, y, z float64) {
	x = m[0][0]*i + m[0][1]*j + m[0][2]*k + m[0][3]
	y = m[1][0]*i + m[1][1]*j + m[1][2]*k + m[1][3]
	z = m[2][0]*i + m[2][1]*j + m[2][2]*k + m[2][3]
	return
}

// MMToVoxel maps millimetres back to (fractional) voxel coordinates.
func (m Mat44) MMToVoxel(x, y, z float64) (i, j, k float64, err error) {
	inv, err := m.Inverse()
	if err != nil {
		return 0, 0, 0, err
	}
	i, j, k = inv.VoxelToMM(x, y, z)
	return
}

// Det3 returns the determinant of the upper-left 3x3 block.
func (m Mat44) Det3() float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// Inverse returns the inverse of an affine whose last row is (0, 0, 0, 1).
func (m Mat44) Inverse() (Mat44, error) {
	det := m.Det3()
	if det == 0 || math.IsNaN(det) {
		return Mat44{}, fmt.Errorf("affine is singular")
	}
	var inv Mat44
	inv[0][0] = (m[1][1]*m[2][2] - m[1][2]*m[2][1]) / det
	inv[0][1] = (m[0][2]*m[2][1] - m[0][1]*m[2][2]) / det
	inv[0][2] = (m[0][1]*m[1][2] - m[0][2]*m[1][1]) / det
	inv[1][0] = (m[1][2]*m[2][0] - m[1][0]*m[2][2]) / det
	inv[1][1] = (m[0][0]*m[2][2] - m[0][2]*m[2][0]) / det
	inv[1][2] = (m[0][2]*m[1][0] - m[0][0]*m[1][2]) / det
	inv[2][0] = (m[1][0]*m[2][1] - m[1][1]*m[2][0]) / det
	inv[2][1] = (m[0][1]*m[2][0] - m[0][0]*m[2][1]) / det
	inv[2][2] = (m[0][0]*m[1][1] - m[0][1]*m[1][0]) / det
	for r := 0; r < 3; r++ {
		inv[r][3] = -(inv[r][0]*m[0][3] + inv[r][1]*m[1][3] + inv[r][2]*m[2][3])
	}
	inv[3] = [4]float64{0, 0, 0, 1}
	return inv, nil
}
