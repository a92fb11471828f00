package main

import "math"

// AvatarRadius is the hit circle of an avatar on the arena plane
const AvatarRadius = 0.5

// CheckCollision checks if two circles overlap
func CheckCollision(x1, y1, r1, x2, y2, r2 float64) bool {
	dx := x2 - x1
	dy := y2 - y1
	dist2 := dx*dx + dy*dy
	radSum := r1 + r2
	return dist2 <= radSum*radSum
}

// segmentCircleIntersect checks if a line segment (x1,y1)-(x2,y2) intersects a circle at (cx,cy) with radius r.
func segmentCircleIntersect(x1, y1, x2, y2, cx, cy, r float64) bool {
	dx := x2 - x1
	dy := y2 - y1
	fx := x1 - cx
	fy := y1 - cy
	a := dx*dx + dy*dy
	c := fx*fx + fy*fy - r*r
	if a == 0 {
		return c <= 0
	}
	b := 2 * (fx*dx + fy*dy)
	discriminant := b*b - 4*a*c
	if discriminant < 0 {
		return false
	}
	discriminant = math.Sqrt(discriminant)
	t1 := (-b - discriminant) / (2 * a)
	t2 := (-b + discriminant) / (2 * a)
	return (t1 >= 0 && t1 <= 1) || (t2 >= 0 && t2 <= 1) || (t1 <= 0 && t2 >= 1)
}

// SweepHit checks whether something moving from `from` to `to` touched a
// circle at center; height is ignored. Sweeping keeps a fast projectile from
// tunnelling through an avatar between two ticks.
func SweepHit(from, to, center Vec3, radius float64) bool {
	return segmentCircleIntersect(from.X, from.Z, to.X, to.Z, center.X, center.Z, radius)
}

// Overlaps checks two avatars on the arena plane
func Overlaps(a, b Vec3, ra, rb float64) bool {
	return CheckCollision(a.X, a.Z, ra, b.X, b.Z, rb)
}
