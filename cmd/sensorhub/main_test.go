package main

import "testing"

func TestRunRejectsMissingPort(t *testing.T) {
	if code := run(nil); code != 255 {
		t.Fatalf("run(nil) = %d; want 255", code)
	}
}

func TestRunRejectsNonIntegerPort(t *testing.T) {
	if code := run([]string{"not-a-port"}); code != 255 {
		t.Fatalf("run([not-a-port]) = %d; want 255", code)
	}
}

func TestRunRejectsOutOfRangePort(t *testing.T) {
	if code := run([]string{"70000"}); code != 255 {
		t.Fatalf("run([70000]) = %d; want 255", code)
	}
}
