package envelope

// EndpointRequest is the unit of work handed to a backend handler.
type EndpointRequest[I, P any] struct {
	Inputs     I `json:"inputs"`
	Parameters P `json:"parameters"`
}

// NewRequest builds an EndpointRequest.
func NewRequest[I, P any](inputs I, params P) EndpointRequest[I, P] {
	return EndpointRequest[I, P]{Inputs: inputs, Parameters: params}
}

// EndpointResponse is the unit of work returned by a backend handler.
type EndpointResponse[O, U any] struct {
	Output O  `json:"output"`
	Usage  *U `json:"usage,omitempty"`
}

// NewResponse builds an EndpointResponse. A nil usage means not reported.
func NewResponse[O, U any](output O, usage *U) EndpointResponse[O, U] {
	return EndpointResponse[O, U]{Output: output, Usage: usage}
}
