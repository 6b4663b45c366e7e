package linear

// Option is a function that configures LinearRegression
type Option func(*LinearRegression)

// WithFitIntercept sets whether to calculate the intercept
func WithFitIntercept(fit bool) Option {
	return func(lr *LinearRegression) {
		lr.FitIntercept = fit
	}
}

// WithNJobs sets the number of parallel jobs used while preparing the design matrix
func WithNJobs(n int) Option {
	return func(lr *LinearRegression) {
		lr.NJobs = n
	}
}
