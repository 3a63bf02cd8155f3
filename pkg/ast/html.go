package ast

import "strings"

// HTML element classification used for compile-time structure validation.
// https://html.spec.whatwg.org/multipage/syntax.html#void-elements

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Elements the browser silently closes when a block element opens inside
// them. Putting a <div> inside a <p> is always a bug.
var autoCloseElements = map[string]bool{
	"p": true,
}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"details": true, "dialog": true, "dd": true, "div": true, "dl": true,
	"dt": true, "fieldset": true, "figcaption": true, "figure": true,
	"footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hgroup": true,
	"hr": true, "li": true, "main": true, "nav": true, "ol": true,
	"p": true, "pre": true, "section": true, "table": true, "ul": true,
}

var interactiveElements = map[string]bool{
	"a": true, "button": true,
}

// Boolean HTML attributes render as a bare name when truthy and disappear
// when falsy, so dynamic values for them go through the BOOL marker.
var booleanAttributes = map[string]bool{
	"disabled": true, "checked": true, "readonly": true, "required": true,
	"autofocus": true, "autoplay": true, "controls": true, "loop": true,
	"muted": true, "selected": true, "open": true, "hidden": true,
	"async": true, "defer": true, "novalidate": true, "formnovalidate": true,
	"ismap": true, "multiple": true, "reversed": true, "scoped": true,
}

func IsVoidElement(tag string) bool {
	return voidElements[strings.ToLower(tag)]
}

func IsAutoCloseElement(tag string) bool {
	return autoCloseElements[strings.ToLower(tag)]
}

func IsBlockElement(tag string) bool {
	return blockElements[strings.ToLower(tag)]
}

func IsInteractiveElement(tag string) bool {
	return interactiveElements[strings.ToLower(tag)]
}

func IsBooleanAttribute(name string) bool {
	return booleanAttributes[strings.ToLower(name)]
}
