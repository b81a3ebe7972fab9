package models

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func SuccessResponse(data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Data:    data,
	}
}

func ErrorResponse(err string) APIResponse {
	return APIResponse{
		Success: false,
		Error:   err,
	}
}

func MessageResponse(message string) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
	}
}

// NetworkResponse is the envelope returned by the control server's REST endpoints.
type NetworkResponse struct {
	StatusCode    int     `json:"statusCode"`
	StatusMessage string  `json:"statusMessage"`
	Data          *string `json:"data"`
}

// RegistrationRequest is the body of POST /register-device.
type RegistrationRequest struct {
	UserDeviceID    string `json:"userDeviceId"`
	DeviceName      string `json:"deviceName"`
	DeviceModel     string `json:"deviceModel"`
	ClientSecretKey string `json:"clientSecretKey"`
}
