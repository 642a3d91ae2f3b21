package graph

// Resample maps the samples onto at most width buckets and aggregates each
// one. Samples keep their order and every sample lands in exactly one
// bucket; when there are fewer samples than columns every bucket holds a
// single sample.
func Resample(samples []float64, width int, aggregate Aggregate) []float64 {
	buckets := resampleBuckets(samples, width)

	values := make([]float64, 0, len(buckets))
	for _, bucket := range buckets {
		values = append(values, aggregate.Apply(bucket))
	}

	return values
}

// resampleBuckets closes the current bucket as soon as the share of buckets
// emitted, counting this one, does not exceed the share of samples consumed:
// (emitted+1)/width <= consumed/n, compared in integers.
func resampleBuckets(samples []float64, width int) [][]float64 {
	n := len(samples)
	if n == 0 || width < 1 {
		return nil
	}

	var buckets [][]float64
	var bucket []float64

	for i, sample := range samples {
		consumed := i + 1
		bucket = append(bucket, sample)

		if len(buckets) < width && (len(buckets)+1)*n <= consumed*width {
			buckets = append(buckets, bucket)
			bucket = nil
		}
	}

	return buckets
}
