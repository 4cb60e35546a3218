package hen

import (
	"encoding/xml"
	"io"
)

// Wire shapes emitted by the CGI scripts.

type experimentsDoc struct {
	XMLName     xml.Name        `xml:"experiments"`
	Experiments []experimentXML `xml:"experiment"`
}

type experimentXML struct {
	ID        string    `xml:"id,attr" validate:"required"`
	User      string    `xml:"user,attr" validate:"required"`
	Email     string    `xml:"email,attr"`
	StartDate string    `xml:"startdate,attr" validate:"required"`
	EndDate   string    `xml:"enddate,attr" validate:"required"`
	Shared    string    `xml:"shared,attr" validate:"omitempty,oneof=yes no"`
	Nodes     []nodeXML `xml:"node" validate:"min=1,dive"`
}

type nodeXML struct {
	ID string `xml:"id,attr" validate:"required"`
}

type ldapResponse struct {
	XMLName    xml.Name   `xml:"ldapresponse"`
	ValidLogin string     `xml:"validlogin,attr"`
	Groups     []groupXML `xml:"group"`
}

type groupXML struct {
	ID string `xml:"id,attr"`
}

// decodeXML decodes one document with external entities disabled.
func decodeXML(r io.Reader, v any) error {
	decoder := xml.NewDecoder(r)
	decoder.Entity = xml.HTMLEntity
	return decoder.Decode(v)
}
