package port

// QueryValidator rejects statements a store must not send.
type QueryValidator interface {
	Validate(sql string) error
}
