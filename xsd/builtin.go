package xsd

// A Builtin represents one of the built-in xml schema types, as
// defined in the W3C specification, "XML Schema Part 2: Datatypes",
// or one of the attributes predeclared in the XML namespace.
//
// http://www.w3.org/TR/xmlschema-2/#built-in-datatypes
type Builtin int

const (
	AnyType Builtin = iota
	AnySimpleType
	AnyAtomicType
	ENTITIES
	ENTITY
	ID
	IDREF
	IDREFS
	NCName
	NMTOKEN
	NMTOKENS
	NOTATION
	Name
	QNameType
	AnyURI
	Base64Binary
	Boolean
	Byte
	Date
	DateTime
	DateTimeStamp
	DayTimeDuration
	Decimal
	Double
	Duration
	Float
	GDay
	GMonth
	GMonthDay // ISO 8601 format: --MM-DD
	GYear
	GYearMonth
	HexBinary
	Int
	Integer
	Language
	Long
	NegativeInteger
	NonNegativeInteger
	NonPositiveInteger
	NormalizedString
	PositiveInteger
	Short
	String
	Time
	Token
	UnsignedByte
	UnsignedInt
	UnsignedLong
	UnsignedShort
	YearMonthDuration
	XMLLang  // xml:lang
	XMLSpace // xml:space
	XMLBase  // xml:base
	XMLId    // xml:id
)

var builtinNames = [...]string{
	AnyType:            "anyType",
	AnySimpleType:      "anySimpleType",
	AnyAtomicType:      "anyAtomicType",
	ENTITIES:           "ENTITIES",
	ENTITY:             "ENTITY",
	ID:                 "ID",
	IDREF:              "IDREF",
	IDREFS:             "IDREFS",
	NCName:             "NCName",
	NMTOKEN:            "NMTOKEN",
	NMTOKENS:           "NMTOKENS",
	NOTATION:           "NOTATION",
	Name:               "Name",
	QNameType:          "QName",
	AnyURI:             "anyURI",
	Base64Binary:       "base64Binary",
	Boolean:            "boolean",
	Byte:               "byte",
	Date:               "date",
	DateTime:           "dateTime",
	DateTimeStamp:      "dateTimeStamp",
	DayTimeDuration:    "dayTimeDuration",
	Decimal:            "decimal",
	Double:             "double",
	Duration:           "duration",
	Float:              "float",
	GDay:               "gDay",
	GMonth:             "gMonth",
	GMonthDay:          "gMonthDay",
	GYear:              "gYear",
	GYearMonth:         "gYearMonth",
	HexBinary:          "hexBinary",
	Int:                "int",
	Integer:            "integer",
	Language:           "language",
	Long:               "long",
	NegativeInteger:    "negativeInteger",
	NonNegativeInteger: "nonNegativeInteger",
	NonPositiveInteger: "nonPositiveInteger",
	NormalizedString:   "normalizedString",
	PositiveInteger:    "positiveInteger",
	Short:              "short",
	String:             "string",
	Time:               "time",
	Token:              "token",
	UnsignedByte:       "unsignedByte",
	UnsignedInt:        "unsignedInt",
	UnsignedLong:       "unsignedLong",
	UnsignedShort:      "unsignedShort",
	YearMonthDuration:  "yearMonthDuration",
	XMLLang:            "lang",
	XMLSpace:           "space",
	XMLBase:            "base",
	XMLId:              "id",
}

// Name returns the canonical name of the built-in. Types are in the
// XML schema namespace; the xml: attributes are in the XML namespace.
func (b Builtin) Name() QName {
	space := schemaNS
	if b >= XMLLang {
		space = xmlNS
	}
	return QName{Space: space, Local: builtinNames[b]}
}

func (b Builtin) String() string {
	return builtinNames[b]
}

// ParseBuiltin looks up a Builtin by name. The second result is false
// if q does not name a built-in.
func ParseBuiltin(q QName) (Builtin, bool) {
	if q.Space != schemaNS && q.Space != xmlNS {
		return -1, false
	}
	for i := AnyType; i <= XMLId; i++ {
		if i.Name() == q {
			return i, true
		}
	}
	return -1, false
}

// isBuiltin reports whether q is predeclared and therefore never
// counts as an unresolved reference.
func isBuiltin(q QName) bool {
	_, ok := ParseBuiltin(q)
	return ok
}
