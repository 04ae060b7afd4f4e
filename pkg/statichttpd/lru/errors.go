package lru

import "fmt"

func errNonMonotone(idx uint32) error {
	return fmt.Errorf("lru: last_used not non-increasing at index %d", idx)
}

func errEndpointMismatch(which string, want, got uint32) error {
	return fmt.Errorf("lru: %s index mismatch: want %d, walk reached %d", which, want, got)
}

func errLengthMismatch(forward, backward int) error {
	return fmt.Errorf("lru: forward walk visited %d entries, backward walk visited %d", forward, backward)
}

func errOrderMismatch() error {
	return fmt.Errorf("lru: backward walk order does not mirror forward walk")
}
