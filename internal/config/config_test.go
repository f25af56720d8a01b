package config

import "testing"

func TestIsAdmin(t *testing.T) {
	cfg := Config{AdminIDs: []string{"1031580076", "555"}}

	if !cfg.IsAdmin(1031580076, 0) {
		t.Fatal("admin user ID not recognized")
	}
	if !cfg.IsAdmin(0, 555) {
		t.Fatal("admin chat ID not recognized")
	}
	if cfg.IsAdmin(42, 43) {
		t.Fatal("non-admin recognized as admin")
	}

	empty := Config{}
	if empty.IsAdmin(1031580076, 1031580076) {
		t.Fatal("empty admin list must deny everyone")
	}
}
