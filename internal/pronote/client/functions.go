package client

import (
	"encoding/base64"

	"github.com/tansive/pronote/internal/pronote/envelope"
)

// Function names of the handshake.
const (
	FunctionParameters     = "FonctionParametres"
	FunctionIdentification = "Identification"
)

// studentSpace is the portal space the call path addresses.
const studentSpace = 3

// Identity is what the identification step announces. It is supplied by the caller
// on every Connect; the client holds no credentials of its own.
type Identity struct {
	Username   string
	ENT        bool   // login goes through a regional ENT
	DeviceUUID string // set when connecting as the mobile application
	TokenLogin bool   // a saved login token replaces the password
}

type parametersArgs struct {
	UUID           string `json:"Uuid"`
	IdentifiantNav string `json:"identifiantNav"`
}

type identificationArgs struct {
	GenreConnexion                   int    `json:"genreConnexion"`
	GenreEspace                      int    `json:"genreEspace"`
	Identifiant                      string `json:"identifiant"`
	PourENT                          bool   `json:"pourENT"`
	EnConnexionAuto                  bool   `json:"enConnexionAuto"`
	DemandeConnexionAuto             bool   `json:"demandeConnexionAuto"`
	DemandeConnexionAppliMobile      bool   `json:"demandeConnexionAppliMobile"`
	DemandeConnexionAppliMobileJeton bool   `json:"demandeConnexionAppliMobileJeton"`
	UUIDAppliMobile                  string `json:"uuidAppliMobile"`
	LoginTokenSAV                    string `json:"loginTokenSAV"`
}

func parametersCall(clientIV []byte) (envelope.FunctionCall, error) {
	return envelope.NewFunctionCall(FunctionParameters, parametersArgs{
		UUID:           base64.StdEncoding.EncodeToString(clientIV),
		IdentifiantNav: "",
	})
}

func identificationCall(id Identity) (envelope.FunctionCall, error) {
	return envelope.NewFunctionCall(FunctionIdentification, identificationArgs{
		GenreConnexion:                   0,
		GenreEspace:                      studentSpace,
		Identifiant:                      id.Username,
		PourENT:                          id.ENT,
		DemandeConnexionAppliMobile:      id.DeviceUUID != "",
		DemandeConnexionAppliMobileJeton: id.TokenLogin,
		UUIDAppliMobile:                  id.DeviceUUID,
	})
}
