package officex

import "encoding/xml"

// paragraphXML is a <w:p>. Inline children are kept in document order.
type paragraphXML struct {
	Properties paragraphPropsXML `xml:"pPr"`
	Content    []inlineXML       `xml:",any"`
}

type paragraphPropsXML struct {
	Style      valXML    `xml:"pStyle"`
	NumPr      *numPrXML `xml:"numPr"`
	OutlineLvl *valXML   `xml:"outlineLvl"`
}

type numPrXML struct {
	ILvl  valXML `xml:"ilvl"`
	NumID valXML `xml:"numId"`
}

type valXML struct {
	Val string `xml:"val,attr"`
}

// inlineXML is either a run or a wrapper around runs (hyperlink, ins,
// smartTag). Fields not present on the element stay empty.
type inlineXML struct {
	XMLName    xml.Name
	Properties runPropsXML  `xml:"rPr"`
	Items      []runItemXML `xml:",any"`
	Runs       []runXML     `xml:"r"`
}

// runXML is a <w:r> nested in a wrapper.
type runXML struct {
	Properties runPropsXML  `xml:"rPr"`
	Items      []runItemXML `xml:",any"`
}

// runItemXML is one child of a run: text, tab, break or drawing.
type runItemXML struct {
	XMLName xml.Name
	Type    string      `xml:"type,attr"`
	Value   string      `xml:",chardata"`
	Inline  *pictureXML `xml:"inline"`
	Anchor  *pictureXML `xml:"anchor"`
}

type pictureXML struct {
	Blip *blipXML `xml:"graphic>graphicData>pic>blipFill>blip"`
}

type blipXML struct {
	Embed string `xml:"embed,attr"`
}

type runPropsXML struct {
	Bold      *boolXML `xml:"b"`
	Italic    *boolXML `xml:"i"`
	Underline *valXML  `xml:"u"`
}

type boolXML struct {
	Val string `xml:"val,attr"`
}

// on reports whether a toggle property is set. An element without a value
// means true.
func (b *boolXML) on() bool {
	if b == nil {
		return false
	}
	switch b.Val {
	case "false", "0", "off":
		return false
	}
	return true
}

type tableXML struct {
	Rows []tableRowXML `xml:"tr"`
}

type tableRowXML struct {
	Cells []tableCellXML `xml:"tc"`
}

type tableCellXML struct {
	Paragraphs []paragraphXML `xml:"p"`
}

type relationshipsXML struct {
	Relationships []relationshipXML `xml:"Relationship"`
}

type relationshipXML struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

type stylesXML struct {
	Styles []styleDefXML `xml:"style"`
}

type styleDefXML struct {
	Type    string            `xml:"type,attr"`
	StyleID string            `xml:"styleId,attr"`
	Name    valXML            `xml:"name"`
	PPr     paragraphPropsXML `xml:"pPr"`
}

type numberingXML struct {
	AbstractNums []abstractNumXML `xml:"abstractNum"`
	Nums         []numXML         `xml:"num"`
}

type abstractNumXML struct {
	ID     string   `xml:"abstractNumId,attr"`
	Levels []lvlXML `xml:"lvl"`
}

type lvlXML struct {
	ILvl   string `xml:"ilvl,attr"`
	NumFmt valXML `xml:"numFmt"`
}

type numXML struct {
	ID            string `xml:"numId,attr"`
	AbstractNumID valXML `xml:"abstractNumId"`
}
