package commerce

// GraphQL documents sent to the Storefront API. Kept as raw strings the way
// the platform documents them; the typed wrappers live in types.go.

const collectionsQuery = `
query getCollections {
  collections(first: 20) {
    edges {
      node {
        id
        handle
        title
        description
      }
    }
  }
}`

const collectionProductsQuery = `
query getCollectionProducts($handle: String!) {
  collection(handle: $handle) {
    id
    title
    description
    products(first: 50) {
      edges {
        node {
          id
          title
          handle
          priceRange {
            minVariantPrice {
              amount
              currencyCode
            }
          }
          images(first: 10) {
            edges {
              node {
                url
                altText
              }
            }
          }
          variants(first: 1) {
            edges {
              node {
                id
                title
                selectedOptions {
                  name
                  value
                }
              }
            }
          }
        }
      }
    }
  }
}`

const productByHandleQuery = `
query getProduct($handle: String!) {
  product(handle: $handle) {
    id
    title
    handle
    description
    priceRange {
      minVariantPrice {
        amount
        currencyCode
      }
    }
    images(first: 10) {
      edges {
        node {
          url
          altText
        }
      }
    }
    variants(first: 20) {
      edges {
        node {
          id
          title
          selectedOptions {
            name
            value
          }
        }
      }
    }
  }
}`

const searchProductsQuery = `
query searchProducts($query: String!) {
  products(first: 20, query: $query) {
    edges {
      node {
        id
        title
        handle
        priceRange {
          minVariantPrice {
            amount
            currencyCode
          }
        }
        images(first: 1) {
          edges {
            node {
              url
              altText
            }
          }
        }
        variants(first: 1) {
          edges {
            node {
              id
              title
            }
          }
        }
      }
    }
  }
}`

const cartCreateMutation = `
mutation cartCreate($lineItems: [CartLineInput!]!) {
  cartCreate(input: {
    lines: $lineItems
  }) {
    cart {
      id
      checkoutUrl
    }
    userErrors {
      field
      message
    }
  }
}`

const customerQuery = `
query getCustomer($customerAccessToken: String!) {
  customer(customerAccessToken: $customerAccessToken) {
    id
    email
    firstName
    lastName
  }
}`
