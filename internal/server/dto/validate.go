// Defines the validation interface for requests.

package dto

// Validatable is implemented by request types that can validate their fields.
// The Wrap functions of the server package use this interface as a type
// constraint so every request type provides validation.
type Validatable interface {
	Validate() error
}

// EmptyRequest is a request without parameters.
type EmptyRequest struct{}

// Validate is a no-op.
func (r *EmptyRequest) Validate() error {
	return nil
}

// OkResponse is a simple success response.
type OkResponse struct {
	Ok bool `json:"ok"`
}
