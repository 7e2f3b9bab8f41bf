package dwt

// symmetricIndex maps i onto [0, n) with half-sample symmetric extension,
// repeating the mirrored signal for filters longer than the signal.
func symmetricIndex(i, n int) int {
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

// analysisLen is the number of coefficients produced from n samples.
func analysisLen(n, filterLen int) int {
	return (n + filterLen - 1) / 2
}

// synthesisLen is the number of samples produced from k coefficients.
func synthesisLen(k, filterLen int) int {
	return 2*k - filterLen + 2
}

// analyze applies the forward transform (analysis) to signal.
// approx and detail must both have length analysisLen(len(signal), len(lo)).
func analyze(signal, lo, hi, approx, detail []float64) {
	n := len(signal)
	f := len(lo)
	for o := range approx {
		i := 2*o + 1
		var sa, sd float64
		for j := 0; j < f; j++ {
			x := signal[symmetricIndex(i-j, n)]
			sa += lo[j] * x
			sd += hi[j] * x
		}
		approx[o] = sa
		detail[o] = sd
	}
}

// synthesize applies the inverse transform (synthesis), combining the
// upsampled approx and detail branches.
// out must have length synthesisLen(len(approx), len(lo)).
func synthesize(approx, detail, lo, hi, out []float64) {
	half := len(lo) / 2
	for i, o := half-1, 0; i < len(approx); i, o = i+1, o+2 {
		var even, odd float64
		for j := 0; j < half; j++ {
			a := approx[i-j]
			d := detail[i-j]
			even += lo[2*j]*a + hi[2*j]*d
			odd += lo[2*j+1]*a + hi[2*j+1]*d
		}
		out[o] = even
		out[o+1] = odd
	}
}
