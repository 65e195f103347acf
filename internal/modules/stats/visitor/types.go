package visitor

type trackRequest struct {
	Page           string  `json:"page"`
	PageTitle      string  `json:"pageTitle"`
	SessionID      string  `json:"sessionId"`
	GuestID        *string `json:"guestId"`
	UserID         *string `json:"userId"`
	TimeOnPage     int64   `json:"timeOnPage"`
	IsBounce       *bool   `json:"isBounce"`
	Converted      *bool   `json:"converted"`
	ConversionType string  `json:"conversionType"`
}

type updateRequest struct {
	TimeOnPage     *int64  `json:"timeOnPage"`
	SessionTime    *int64  `json:"sessionTime"`
	IsBounce       *bool   `json:"isBounce"`
	Converted      *bool   `json:"converted"`
	ConversionType *string `json:"conversionType"`
}

func (r updateRequest) patch() VisitPatch {
	return VisitPatch{
		TimeOnPage:     r.TimeOnPage,
		SessionTime:    r.SessionTime,
		IsBounce:       r.IsBounce,
		Converted:      r.Converted,
		ConversionType: r.ConversionType,
	}
}

type sessionTimeRequest struct {
	SessionTime *int64 `json:"sessionTime"`
}

type trackResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	VisitorID string `json:"visitorId"`
}

type updateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type sessionTimeResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	UpdatedCount int64  `json:"updatedCount"`
}

type cleanupResponse struct {
	Message string `json:"message"`
	CleanupReport
}

type purgeResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}
