package main

import "testing"

func TestCheckCollision(t *testing.T) {
	// Overlapping circles
	if !CheckCollision(0, 0, 1, 1.5, 0, 1) {
		t.Error("circles should collide (overlapping)")
	}

	// Touching circles
	if !CheckCollision(0, 0, 1, 2, 0, 1) {
		t.Error("circles should collide (touching)")
	}

	if CheckCollision(0, 0, 1, 2.5, 0, 1) {
		t.Error("circles should not collide")
	}
}

func TestSweepHitTunnelling(t *testing.T) {
	// One 60 Hz step at 50 m/s covers ~0.83m, more than the avatar diameter.
	from := Vec3{Z: -0.6}
	to := Vec3{Z: 0.6}
	if !SweepHit(from, to, Vec3{}, AvatarRadius) {
		t.Error("segment crossing the avatar should hit")
	}
	if SweepHit(Vec3{X: 2, Z: -1}, Vec3{X: 2, Z: 1}, Vec3{}, AvatarRadius) {
		t.Error("segment passing beside the avatar should miss")
	}
}

func TestSweepHitIgnoresHeight(t *testing.T) {
	if !SweepHit(Vec3{Y: 1.2, Z: -1}, Vec3{Y: 1.2, Z: 1}, Vec3{}, AvatarRadius) {
		t.Error("muzzle height should not matter")
	}
}

func TestSweepHitZeroLength(t *testing.T) {
	p := Vec3{X: 0.2}
	if !SweepHit(p, p, Vec3{}, AvatarRadius) {
		t.Error("point inside circle should hit")
	}
	if SweepHit(Vec3{X: 3}, Vec3{X: 3}, Vec3{}, AvatarRadius) {
		t.Error("point outside circle should miss")
	}
}
