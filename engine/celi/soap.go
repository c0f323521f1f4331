package celi

import (
	"encoding/xml"
	"io"
)

// SOAP envelope and body of the namedEntityRecognition request.
type soapRequest struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	EnvNS   string   `xml:"xmlns:soapenv,attr"`
	NerNS   string   `xml:"xmlns:ner,attr"`
	Body    struct {
		Recognition struct {
			Lang string `xml:"ner:lang"`
			Text string `xml:"ner:text"`
		} `xml:"ner:namedEntityRecognition"`
	} `xml:"soapenv:Body"`
}

// nerEntity is one recognized entity of the response. From and To are
// rune offsets into the posted text.
type nerEntity struct {
	Type  string `xml:"type,attr"`
	From  int    `xml:"from,attr"`
	To    int    `xml:"to,attr"`
	Label string `xml:"label"`
}

type soapResponse struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Response struct {
			Entities []nerEntity `xml:"entity"`
		} `xml:"namedEntityRecognitionResponse"`
	} `xml:"Body"`
}

// marshalRequest builds the SOAP request for text and lang.
func marshalRequest(text string, lang string) (string, error) {
	req := soapRequest{
		EnvNS: "http://schemas.xmlsoap.org/soap/envelope/",
		NerNS: "http://linguagrid.org/v20110204/ner",
	}
	req.Body.Recognition.Lang = lang
	req.Body.Recognition.Text = text

	out, err := xml.Marshal(req)
	if err != nil {
		return "", err
	}
	return xml.Header + string(out), nil
}

// parseResponse extracts the entity list from a response envelope.
// Element matching is namespace agnostic so both prefixed and default
// namespace responses are accepted.
func parseResponse(r io.Reader) ([]nerEntity, error) {
	var resp soapResponse
	if err := xml.NewDecoder(r).Decode(&resp); err != nil {
		return nil, err
	}
	return resp.Body.Response.Entities, nil
}
