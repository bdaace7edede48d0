//go:build !race

package auth

// passwordHashCost is the bcrypt cost factor. Cost 10 is the deliberate lever
// balancing login latency against brute-force resistance.
func passwordHashCost() int {
	return 10
}
