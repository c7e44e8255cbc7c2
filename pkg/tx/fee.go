package tx

// RequiredFee returns the relay fee for a transaction: feePerKB for every
// started kilobyte of its signed size. A transaction under 1000 bytes pays
// exactly feePerKB.
func RequiredFee(transaction *Transaction, feePerKB uint64) uint64 {
	return FeeForSize(transaction.Size(), feePerKB)
}

// FeeForSize is RequiredFee for a known size in bytes.
func FeeForSize(size int, feePerKB uint64) uint64 {
	return (1 + uint64(size)/1000) * feePerKB
}
