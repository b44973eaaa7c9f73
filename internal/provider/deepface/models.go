package deepface

// RepresentRequest for POST /represent
type RepresentRequest struct {
	Img              string `json:"img"`               // base64 data URI
	ModelName        string `json:"model_name"`        // "Dlib" yields 128-d vectors
	DetectorBackend  string `json:"detector_backend"`  // "opencv", "retinaface", etc
	EnforceDetection bool   `json:"enforce_detection"` // 400 instead of a whole-image embedding
	Align            bool   `json:"align"`
}

// RepresentResponse from POST /represent
type RepresentResponse struct {
	Results []RepresentResult `json:"results"`
}

type RepresentResult struct {
	Embedding      []float64  `json:"embedding"`
	FacialArea     FacialArea `json:"facial_area"`
	FaceConfidence float64    `json:"face_confidence"`
}

type FacialArea struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}
