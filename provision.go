package goEnroll

import "github.com/MrEthical07/goEnroll/password"

// HashForProvisioning hashes an initial password with the given work
// factors. Record creation is an external administrative step, not an engine
// operation; this helper exists so provisioning tooling produces digests the
// engine's hasher can verify.
func HashForProvisioning(cfg PasswordConfig, plaintext string) (string, error) {
	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Memory,
		Time:        cfg.Time,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
	})
	if err != nil {
		return "", err
	}
	return hasher.Hash(plaintext)
}
